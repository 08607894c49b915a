package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dunetube/dunetube/storage"
	"github.com/dunetube/dunetube/validate"
	"github.com/sirupsen/logrus"
)

// errUnchanged lets an update callback finish without writing.
var errUnchanged = errors.New("course: unchanged")

var (
	ErrNotFound          = errors.New("course: not found")
	ErrNotEditable       = errors.New("course: only drafts can be edited")
	ErrInvalidTransition = errors.New("course: transition not allowed from current status")
)

const (
	DefaultKey         = "dunetube.studio.courses"
	DefaultCourseTitle = "Untitled Course"
	DefaultLessonTitle = "New lesson"
)

// Previewer derives a short-lived preview handle for an attachment.
type Previewer interface {
	Handle(a Attachment) (string, error)
}

type refPreviewer struct{}

func (refPreviewer) Handle(a Attachment) (string, error) { return a.Ref, nil }

// document is the persisted form of the whole collection.
type document struct {
	Revision int64    `json:"revision"`
	Courses  []Course `json:"courses"`
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDs(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithPreviewer(p Previewer) Option {
	return func(s *Store) { s.previews = p }
}

// Store is the only writer of the authoring collection. The collection is
// read from kv once and written back whole on every mutation with a
// compare-and-swap against the last document seen, so a concurrent writer
// surfaces as storage.ErrConflict instead of a silent lost update.
type Store struct {
	log      logrus.FieldLogger
	kv       storage.Storage
	key      string
	now      func() time.Time
	newID    func() string
	previews Previewer

	mu     sync.Mutex
	loaded bool
	raw    string
	doc    document
}

func NewStore(log logrus.FieldLogger, kv storage.Storage, key string, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}

	s := &Store{
		log:      log.WithField("store", key),
		kv:       kv,
		key:      key,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    validate.GenerateID,
		previews: refPreviewer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init hydrates the in-memory collection. Every other method calls it lazily.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensure(ctx)
}

// Reload drops the in-memory collection and reads it again. A conflict
// already forces this on the next call.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	return s.ensure(ctx)
}

func (s *Store) Revision(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	return s.doc.Revision, nil
}

func (s *Store) ensure(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	var doc document
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return fmt.Errorf("decoding collection: %w", err)
		}
	}
	if doc.Courses == nil {
		doc.Courses = []Course{}
	}

	s.raw, s.doc, s.loaded = raw, doc, true
	return nil
}

// persist writes courses as the next revision. The cache is only replaced
// once the write succeeded; a conflict drops it so the caller can retry.
func (s *Store) persist(ctx context.Context, courses []Course) error {
	next := document{Revision: s.doc.Revision + 1, Courses: courses}

	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	if err := s.kv.CompareAndSwap(ctx, s.key, s.raw, string(b)); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			s.log.WithField("revision", s.doc.Revision).Warn("collection changed by another writer")
			// The next call re-reads the winner's document.
			s.loaded = false
		}
		return fmt.Errorf("writing revision %d: %w", next.Revision, err)
	}

	s.raw, s.doc = string(b), next
	return nil
}

func (s *Store) snapshot() []Course {
	out := make([]Course, len(s.doc.Courses))
	for i, c := range s.doc.Courses {
		out[i] = c.clone()
	}
	return out
}

func (s *Store) index(uid string) int {
	for i, c := range s.doc.Courses {
		if c.UID == uid {
			return i
		}
	}
	return -1
}

// update applies f to a copy of the course and persists the result.
func (s *Store) update(ctx context.Context, uid string, f func(c *Course) error) (Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return Course{}, err
	}

	i := s.index(uid)
	if i < 0 {
		return Course{}, ErrNotFound
	}

	c := s.doc.Courses[i].clone()
	if err := f(&c); err != nil {
		if errors.Is(err, errUnchanged) {
			return s.doc.Courses[i].clone(), nil
		}
		return Course{}, err
	}
	c.UpdatedAt = s.now()

	courses := s.snapshot()
	courses[i] = c
	if err := s.persist(ctx, courses); err != nil {
		return Course{}, err
	}

	s.log.WithFields(logrus.Fields{"uid": uid, "status": c.Status}).Debug("course updated")
	return c.clone(), nil
}

// edit is update restricted to drafts.
func (s *Store) edit(ctx context.Context, uid string, f func(c *Course) error) (Course, error) {
	return s.update(ctx, uid, func(c *Course) error {
		if !c.Editable() {
			return ErrNotEditable
		}
		return f(c)
	})
}

func (s *Store) List(ctx context.Context) ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.snapshot(), nil
}

func (s *Store) Get(ctx context.Context, uid string) (Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return Course{}, err
	}

	i := s.index(uid)
	if i < 0 {
		return Course{}, ErrNotFound
	}
	return s.doc.Courses[i].clone(), nil
}

func (s *Store) Editable(ctx context.Context, uid string) (bool, error) {
	c, err := s.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	return c.Editable(), nil
}

// Upsert replaces the course with the same UID or prepends it. It does not
// touch UpdatedAt. A stored course that is not a draft only accepts
// changes to its figures (students, rating); anything else is
// ErrNotEditable.
func (s *Store) Upsert(ctx context.Context, c Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(ctx); err != nil {
		return err
	}

	c = c.clone()
	courses := s.snapshot()
	if i := s.index(c.UID); i >= 0 {
		if cur := courses[i]; !cur.Editable() && !sameStructure(cur, c) {
			return fmt.Errorf("replacing %s course[%s]: %w", cur.Status, c.UID, ErrNotEditable)
		}
		courses[i] = c
	} else {
		courses = append([]Course{c}, courses...)
	}
	return s.persist(ctx, courses)
}

// CreateDraftLike stores a new draft. With a nil src it is an empty
// "Untitled Course"; otherwise it copies src's title and lessons, giving
// every lesson a fresh LID and dropping all attachments.
func (s *Store) CreateDraftLike(ctx context.Context, src *Course) (Course, error) {
	c := Course{
		UID:       s.newID(),
		Title:     DefaultCourseTitle,
		Status:    Draft,
		Lessons:   []Lesson{},
		UpdatedAt: s.now(),
	}

	if src != nil {
		c.Title = src.Title
		for _, l := range src.Lessons {
			c.Lessons = append(c.Lessons, Lesson{
				LID:         s.newID(),
				Title:       l.Title,
				Attachments: []Attachment{},
			})
		}
	}

	if err := s.Upsert(ctx, c); err != nil {
		return Course{}, fmt.Errorf("storing draft: %w", err)
	}
	return c.clone(), nil
}

// CreateDraft stores a new empty draft titled title, or DefaultCourseTitle
// when title is blank.
func (s *Store) CreateDraft(ctx context.Context, title string) (Course, error) {
	if strings.TrimSpace(title) == "" {
		return s.CreateDraftLike(ctx, nil)
	}
	return s.CreateDraftLike(ctx, &Course{Title: title})
}

func (s *Store) Duplicate(ctx context.Context, uid string) (Course, error) {
	src, err := s.Get(ctx, uid)
	if err != nil {
		return Course{}, err
	}
	return s.CreateDraftLike(ctx, &src)
}

func (s *Store) transition(ctx context.Context, uid string, op Transition) (Course, error) {
	return s.update(ctx, uid, func(c *Course) error {
		next, ok := c.Status.Next(op)
		if !ok {
			return fmt.Errorf("%s a %s course: %w", op, c.Status, ErrInvalidTransition)
		}
		c.Status = next

		if op == Publish && c.Students == nil {
			zero := 0
			c.Students = &zero
		}
		return nil
	})
}

func (s *Store) Publish(ctx context.Context, uid string) (Course, error) {
	return s.transition(ctx, uid, Publish)
}

// Pause closes the course to new enrollments. Keeping access for enrolled
// learners is up to the product; the store only records the status.
func (s *Store) Pause(ctx context.Context, uid string) (Course, error) {
	return s.transition(ctx, uid, Pause)
}

func (s *Store) Resume(ctx context.Context, uid string) (Course, error) {
	return s.transition(ctx, uid, Resume)
}

// OfferMigration checks that learners of the paused course fromUID could be
// moved to the draft toUID once it is published. Nothing is changed.
func (s *Store) OfferMigration(ctx context.Context, fromUID, toUID string) (MigrationOffer, error) {
	from, err := s.Get(ctx, fromUID)
	if err != nil {
		return MigrationOffer{}, fmt.Errorf("source course: %w", err)
	}
	if from.Status != Paused {
		return MigrationOffer{}, fmt.Errorf("source course is %s: %w", from.Status, ErrInvalidTransition)
	}

	to, err := s.Get(ctx, toUID)
	if err != nil {
		return MigrationOffer{}, fmt.Errorf("target course: %w", err)
	}
	if to.Status != Draft {
		return MigrationOffer{}, fmt.Errorf("target course is %s: %w", to.Status, ErrInvalidTransition)
	}

	offer := MigrationOffer{FromUID: fromUID, ToUID: toUID, OfferedAt: s.now()}
	if from.Students != nil {
		offer.Learners = *from.Students
	}
	return offer, nil
}

func (s *Store) Rename(ctx context.Context, uid string, title string) (Course, error) {
	return s.edit(ctx, uid, func(c *Course) error {
		c.Title = title
		return nil
	})
}

func (s *Store) AddLesson(ctx context.Context, uid string, title string) (Course, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultLessonTitle
	}

	return s.edit(ctx, uid, func(c *Course) error {
		c.Lessons = append(c.Lessons, Lesson{
			LID:         s.newID(),
			Title:       title,
			Attachments: []Attachment{},
		})
		return nil
	})
}

// RemoveLesson drops the lesson and its attachments. Remaining LIDs are kept;
// display numbers come from position.
func (s *Store) RemoveLesson(ctx context.Context, uid string, lid string) (Course, error) {
	return s.edit(ctx, uid, func(c *Course) error {
		i := c.lessonIndex(lid)
		if i < 0 {
			return fmt.Errorf("lesson[%s]: %w", lid, ErrNotFound)
		}
		c.Lessons = append(c.Lessons[:i], c.Lessons[i+1:]...)
		return nil
	})
}

// MoveLesson moves the lesson at from to position to. An out of range from
// leaves the order untouched; to is clamped into the valid range.
func (s *Store) MoveLesson(ctx context.Context, uid string, from, to int) (Course, error) {
	return s.edit(ctx, uid, func(c *Course) error {
		n := len(c.Lessons)
		if from < 0 || from >= n {
			return errUnchanged
		}
		dst := clamp(to, 0, n-1)
		if from == dst {
			return errUnchanged
		}

		l := c.Lessons[from]
		rest := append(c.Lessons[:from:from], c.Lessons[from+1:]...)
		c.Lessons = append(rest[:dst:dst], append([]Lesson{l}, rest[dst:]...)...)
		return nil
	})
}

func (s *Store) RenameLesson(ctx context.Context, uid string, lid string, title string) (Course, error) {
	return s.edit(ctx, uid, func(c *Course) error {
		i := c.lessonIndex(lid)
		if i < 0 {
			return fmt.Errorf("lesson[%s]: %w", lid, ErrNotFound)
		}
		c.Lessons[i].Title = title
		return nil
	})
}

// AttachToLesson appends one attachment per upload and returns a preview
// handle for each, in order.
func (s *Store) AttachToLesson(ctx context.Context, uid string, lid string, files []Upload) ([]string, error) {
	var added []Attachment

	_, err := s.edit(ctx, uid, func(c *Course) error {
		i := c.lessonIndex(lid)
		if i < 0 {
			return fmt.Errorf("lesson[%s]: %w", lid, ErrNotFound)
		}

		added = added[:0]
		for _, f := range files {
			a := Attachment{
				ID:   s.newID(),
				Type: f.Type,
				Name: f.Name,
				Ref:  f.Ref,
			}
			added = append(added, a)
		}
		c.Lessons[i].Attachments = append(c.Lessons[i].Attachments, added...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	handles := make([]string, 0, len(added))
	for _, a := range added {
		h, err := s.previews.Handle(a)
		if err != nil {
			return nil, fmt.Errorf("preview for attachment[%s]: %w", a.ID, err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func (s *Store) DetachFromLesson(ctx context.Context, uid string, lid string, id string) (Course, error) {
	return s.edit(ctx, uid, func(c *Course) error {
		i := c.lessonIndex(lid)
		if i < 0 {
			return fmt.Errorf("lesson[%s]: %w", lid, ErrNotFound)
		}

		atts := c.Lessons[i].Attachments
		for j, a := range atts {
			if a.ID == id {
				c.Lessons[i].Attachments = append(atts[:j], atts[j+1:]...)
				return nil
			}
		}
		return fmt.Errorf("attachment[%s]: %w", id, ErrNotFound)
	})
}

// Preview derives a fresh handle for a stored attachment. It works for any
// status since previews do not modify the course.
func (s *Store) Preview(ctx context.Context, uid string, lid string, id string) (string, error) {
	c, err := s.Get(ctx, uid)
	if err != nil {
		return "", err
	}

	i := c.lessonIndex(lid)
	if i < 0 {
		return "", fmt.Errorf("lesson[%s]: %w", lid, ErrNotFound)
	}
	for _, a := range c.Lessons[i].Attachments {
		if a.ID == id {
			return s.previews.Handle(a)
		}
	}
	return "", fmt.Errorf("attachment[%s]: %w", id, ErrNotFound)
}

// Filter keeps the courses matching status (any when empty) whose title
// contains q, ignoring case.
func Filter(courses []Course, status Status, q string) []Course {
	q = strings.ToLower(strings.TrimSpace(q))

	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if status != "" && c.Status != status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Title), q) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
