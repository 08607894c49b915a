// Package catalog drives the public course listing and the course detail
// page. The listing state is kept in step with the URL query string so a
// link or a reload reproduces the same view.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/dunetube/dunetube/core/fetch"
	"github.com/dunetube/dunetube/i18n"
	"github.com/dunetube/dunetube/remote"
	"github.com/sirupsen/logrus"
)

const DefaultPageSize = 12

// ErrSuperseded is returned by a load whose response arrived after a newer
// load had started. Its result is dropped.
var ErrSuperseded = errors.New("catalog: superseded by a newer load")

// Lister fetches one page of courses.
type Lister interface {
	ListCourses(ctx context.Context, p remote.ListParams) (remote.CoursePage, error)
}

type State struct {
	Query       Query           `json:"query"`
	URL         string          `json:"url"`
	Results     []remote.Course `json:"results"`
	Count       int             `json:"count"`
	HasNext     bool            `json:"hasNext"`
	HasPrevious bool            `json:"hasPrevious"`
	Status      fetch.Status    `json:"status"`
	Message     string          `json:"message,omitempty"`
}

// NextURL is the query string of the following page, or "" when there is
// none.
func (s State) NextURL() string {
	if !s.HasNext {
		return ""
	}
	q := s.Query
	q.Page++
	return q.Encode()
}

func (s State) PreviousURL() string {
	if !s.HasPrevious {
		return ""
	}
	q := s.Query
	q.Page--
	return q.Encode()
}

type ControllerOption func(*Controller)

func WithPageSize(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithLanguage(lang string) ControllerOption {
	return func(c *Controller) { c.lang = lang }
}

type Controller struct {
	log      logrus.FieldLogger
	courses  Lister
	pageSize int
	lang     string
	seq      fetch.Sequencer

	mu    sync.Mutex
	state State
}

func NewController(log logrus.FieldLogger, courses Lister, opts ...ControllerOption) *Controller {
	c := &Controller{
		log:      log,
		courses:  courses,
		pageSize: DefaultPageSize,
		lang:     i18n.DefaultLanguage,
		state:    State{Query: Query{}.Normalize(), Status: fetch.Idle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	s.Results = append([]remote.Course(nil), c.state.Results...)
	return s
}

// Load normalizes q, records it as the current URL state and fetches the
// page. A failed fetch flags the state as errored and keeps the previous
// results visible.
func (c *Controller) Load(ctx context.Context, q Query) (State, error) {
	q = q.Normalize()

	c.mu.Lock()
	ticket := c.seq.Next()
	c.state.Query = q
	c.state.URL = q.Encode()
	c.state.Status = fetch.Loading
	c.state.Message = ""
	c.mu.Unlock()

	page, err := c.courses.ListCourses(ctx, remote.ListParams{
		Page:     q.Page,
		PageSize: c.pageSize,
		Search:   q.Keyword,
		Ordering: string(q.Ordering),
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seq.Current(ticket) {
		c.log.WithFields(logrus.Fields{"query": q.Encode(), "ticket": ticket}).Debug("dropping superseded catalog response")
		return c.snapshot(), ErrSuperseded
	}

	if err != nil {
		c.state.Status = fetch.Error
		c.state.Message = i18n.Message(c.lang, i18n.MsgGenericError)
		return c.snapshot(), fmt.Errorf("loading catalog page %d: %w", q.Page, err)
	}

	c.state.Results = page.Results
	c.state.Count = page.Count
	c.state.HasNext = page.HasNext()
	c.state.HasPrevious = page.HasPrevious()
	c.state.Status = fetch.Success
	if len(page.Results) == 0 {
		c.state.Message = i18n.Message(c.lang, i18n.MsgEmpty)
	}
	return c.snapshot(), nil
}

// Sync brings the state in line with a URL query string. It loads only when
// the parsed query differs from the current one or nothing was loaded yet.
func (c *Controller) Sync(ctx context.Context, v url.Values) (State, error) {
	q := ParseQuery(v)

	c.mu.Lock()
	same := c.state.Query == q && c.state.Status != fetch.Idle
	c.mu.Unlock()

	if same {
		return c.State(), nil
	}
	return c.Load(ctx, q)
}

// Next loads the following page. ok is false when the server reported no
// next page.
func (c *Controller) Next(ctx context.Context) (s State, ok bool, err error) {
	c.mu.Lock()
	cur := c.state
	c.mu.Unlock()

	if !cur.HasNext {
		return c.State(), false, nil
	}
	cur.Query.Page++
	s, err = c.Load(ctx, cur.Query)
	return s, true, err
}

func (c *Controller) Previous(ctx context.Context) (s State, ok bool, err error) {
	c.mu.Lock()
	cur := c.state
	c.mu.Unlock()

	if !cur.HasPrevious {
		return c.State(), false, nil
	}
	cur.Query.Page--
	s, err = c.Load(ctx, cur.Query)
	return s, true, err
}
