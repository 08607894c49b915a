package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dunetube/dunetube/core/fetch"
	"github.com/dunetube/dunetube/i18n"
	"github.com/dunetube/dunetube/remote"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DetailSource is the subset of the remote API the detail page reads.
type DetailSource interface {
	GetCourse(ctx context.Context, id string) (remote.Course, error)
	ListLessons(ctx context.Context, courseID string) ([]remote.Lesson, error)
	ListReviews(ctx context.Context, courseID string) ([]remote.Review, error)
}

type Detail struct {
	Course  remote.Course   `json:"course"`
	Lessons []remote.Lesson `json:"lessons"`
	Reviews []remote.Review `json:"reviews"`
}

// LoadDetail fetches a course with its lessons and reviews in parallel. The
// first failure cancels the other requests.
func LoadDetail(ctx context.Context, src DetailSource, id string) (Detail, error) {
	var d Detail
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := src.GetCourse(ctx, id)
		d.Course = c
		return err
	})
	g.Go(func() error {
		l, err := src.ListLessons(ctx, id)
		d.Lessons = l
		return err
	})
	g.Go(func() error {
		r, err := src.ListReviews(ctx, id)
		d.Reviews = r
		return err
	})

	if err := g.Wait(); err != nil {
		return Detail{}, err
	}
	return d, nil
}

type DetailState struct {
	ID       string       `json:"id"`
	Detail   *Detail      `json:"detail,omitempty"`
	Status   fetch.Status `json:"status"`
	NotFound bool         `json:"notFound"`
	Message  string       `json:"message,omitempty"`
}

// DetailView holds the detail page of one course at a time. Showing another
// course, or closing the view, cancels the load still in flight.
type DetailView struct {
	log  logrus.FieldLogger
	src  DetailSource
	lang string
	seq  fetch.Sequencer

	mu     sync.Mutex
	cancel context.CancelFunc
	state  DetailState
}

func NewDetailView(log logrus.FieldLogger, src DetailSource, lang string) *DetailView {
	return &DetailView{
		log:   log,
		src:   src,
		lang:  lang,
		state: DetailState{Status: fetch.Idle},
	}
}

func (v *DetailView) State() DetailState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *DetailView) Show(ctx context.Context, id string) (DetailState, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = cancel
	ticket := v.seq.Next()
	v.state = DetailState{ID: id, Status: fetch.Loading}
	v.mu.Unlock()

	d, err := LoadDetail(ctx, v.src, id)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.seq.Current(ticket) {
		return v.state, ErrSuperseded
	}
	v.cancel = nil

	if err != nil {
		v.state.Status = fetch.Error
		v.state.NotFound = errors.Is(err, remote.ErrNotFound)
		key := i18n.MsgGenericError
		if v.state.NotFound {
			key = i18n.MsgNotFound
		}
		v.state.Message = i18n.Message(v.lang, key)
		return v.state, fmt.Errorf("loading course[%s]: %w", id, err)
	}

	v.state.Detail = &d
	v.state.Status = fetch.Success
	return v.state, nil
}

func (v *DetailView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}
