package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/blob"
	"github.com/dunetube/dunetube/i18n"
	"github.com/dunetube/dunetube/storage"
	"github.com/dunetube/dunetube/validate"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadMemory = 32 << 20

	// DefaultMaxUpload bounds one attachment request body.
	DefaultMaxUpload = 512 << 20
)

type ListItem struct {
	UID         string    `json:"uid"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	LessonCount int       `json:"lessonCount"`
	Students    *int      `json:"students,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Editable    bool      `json:"editable"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type LessonView struct {
	Number int `json:"number"`
	Lesson
	Previews map[string]string `json:"previews"`
}

type EditorView struct {
	Course
	Editable bool         `json:"editable"`
	Lessons  []LessonView `json:"lessons"`
}

// editorView numbers lessons by position and derives preview handles for
// every attachment.
func editorView(s *Store, c Course) (EditorView, error) {
	v := EditorView{Course: c, Editable: c.Editable(), Lessons: make([]LessonView, 0, len(c.Lessons))}

	for i, l := range c.Lessons {
		lv := LessonView{Number: i + 1, Lesson: l, Previews: make(map[string]string, len(l.Attachments))}
		for _, a := range l.Attachments {
			h, err := s.previews.Handle(a)
			if err != nil {
				return EditorView{}, fmt.Errorf("preview for attachment[%s]: %w", a.ID, err)
			}
			lv.Previews[a.ID] = h
		}
		v.Lessons = append(v.Lessons, lv)
	}
	return v, nil
}

func storeError(r *http.Request, err error, fields map[string]interface{}) error {
	opt := weberr.WithFields(fields)

	switch {
	case errors.Is(err, ErrNotFound):
		return weberr.NotFound(err, opt)
	case errors.Is(err, ErrNotEditable), errors.Is(err, ErrInvalidTransition):
		return weberr.Conflict(err, opt)
	case errors.Is(err, storage.ErrConflict):
		msg := i18n.Message(web.Language(r), i18n.MsgReload)
		return weberr.NewError(err, msg, http.StatusConflict, opt)
	}
	return err
}

func respondEditor(ctx context.Context, w http.ResponseWriter, s *Store, c Course, status int) error {
	v, err := editorView(s, c)
	if err != nil {
		return err
	}
	return web.Respond(ctx, w, v, status)
}

func HandleList(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := Status(r.URL.Query().Get("status"))
		if status != "" && !status.Valid() {
			return weberr.Invalid(fmt.Errorf("unknown status %q", status))
		}

		courses, err := s.List(ctx)
		if err != nil {
			return fmt.Errorf("listing courses: %w", err)
		}

		courses = Filter(courses, status, r.URL.Query().Get("q"))

		items := make([]ListItem, 0, len(courses))
		for _, c := range courses {
			items = append(items, ListItem{
				UID:         c.UID,
				Title:       c.Title,
				Status:      c.Status,
				LessonCount: len(c.Lessons),
				Students:    c.Students,
				Rating:      c.Rating,
				Editable:    c.Editable(),
				UpdatedAt:   c.UpdatedAt,
			})
		}

		return web.Respond(ctx, w, items, http.StatusOK)
	}
}

func HandleShow(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		c, err := s.Get(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("fetching course[%s]: %w", uid, err), map[string]interface{}{"uid": uid})
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

func HandleCreate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CourseNew
		if r.ContentLength != 0 {
			if err := web.Decode(w, r, &cn); err != nil {
				return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
			}
			if err := validate.CheckLang(cn, web.Language(r)); err != nil {
				return weberr.Invalid(fmt.Errorf("validating data: %w", err))
			}
		}

		c, err := s.CreateDraft(ctx, cn.Title)
		if err != nil {
			return storeError(r, fmt.Errorf("creating draft: %w", err), nil)
		}

		return respondEditor(ctx, w, s, c, http.StatusCreated)
	}
}

func HandleDuplicate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		c, err := s.Duplicate(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("duplicating course[%s]: %w", uid, err), map[string]interface{}{"uid": uid})
		}

		return respondEditor(ctx, w, s, c, http.StatusCreated)
	}
}

func HandleUpdate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(cu, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		c, err := s.Rename(ctx, uid, cu.Title)
		if err != nil {
			return storeError(r, fmt.Errorf("renaming course[%s]: %w", uid, err), map[string]interface{}{"uid": uid})
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

// HandleTransition serves publish, pause and resume.
func HandleTransition(s *Store, op Transition) web.Handler {
	apply := map[Transition]func(context.Context, string) (Course, error){
		Publish: s.Publish,
		Pause:   s.Pause,
		Resume:  s.Resume,
	}[op]

	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		c, err := apply(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("%s course[%s]: %w", op, uid, err), map[string]interface{}{"uid": uid, "op": op})
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

func HandleMigrationOffer(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		var mn MigrationNew
		if err := web.Decode(w, r, &mn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(mn, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		offer, err := s.OfferMigration(ctx, uid, mn.TargetUID)
		if err != nil {
			return storeError(r, fmt.Errorf("offering migration from course[%s]: %w", uid, err), map[string]interface{}{"uid": uid, "target": mn.TargetUID})
		}

		return web.Respond(ctx, w, offer, http.StatusOK)
	}
}

func HandleCreateLesson(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		var ln LessonNew
		if r.ContentLength != 0 {
			if err := web.Decode(w, r, &ln); err != nil {
				return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
			}
			if err := validate.CheckLang(ln, web.Language(r)); err != nil {
				return weberr.Invalid(fmt.Errorf("validating data: %w", err))
			}
		}

		c, err := s.AddLesson(ctx, uid, ln.Title)
		if err != nil {
			return storeError(r, fmt.Errorf("adding lesson to course[%s]: %w", uid, err), map[string]interface{}{"uid": uid})
		}

		return respondEditor(ctx, w, s, c, http.StatusCreated)
	}
}

func HandleUpdateLesson(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid, lid := web.Param(r, "uid"), web.Param(r, "lid")

		var lu LessonUp
		if err := web.Decode(w, r, &lu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(lu, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		c, err := s.RenameLesson(ctx, uid, lid, lu.Title)
		if err != nil {
			return storeError(r, fmt.Errorf("renaming lesson[%s] of course[%s]: %w", lid, uid, err), map[string]interface{}{"uid": uid, "lid": lid})
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

func HandleDeleteLesson(s *Store, blobs blob.Store, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid, lid := web.Param(r, "uid"), web.Param(r, "lid")
		fields := map[string]interface{}{"uid": uid, "lid": lid}

		before, err := s.Get(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("fetching course[%s]: %w", uid, err), fields)
		}

		c, err := s.RemoveLesson(ctx, uid, lid)
		if err != nil {
			return storeError(r, fmt.Errorf("removing lesson[%s] of course[%s]: %w", lid, uid, err), fields)
		}

		if i := before.lessonIndex(lid); i >= 0 {
			purge(ctx, blobs, log, before.Lessons[i].Attachments)
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

func HandleMoveLesson(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")

		var lm LessonMove
		if err := web.Decode(w, r, &lm); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(lm, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		c, err := s.MoveLesson(ctx, uid, *lm.From, *lm.To)
		if err != nil {
			return storeError(r, fmt.Errorf("moving lesson in course[%s]: %w", uid, err), map[string]interface{}{"uid": uid})
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

// HandleCreateAttachments reads multipart "type" and "file" fields pairwise,
// uploads every file and attaches them to the lesson.
func HandleCreateAttachments(s *Store, blobs blob.Store, maxUpload int64, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid, lid := web.Param(r, "uid"), web.Param(r, "lid")
		fields := map[string]interface{}{"uid": uid, "lid": lid}

		// Reject before writing any blob.
		c, err := s.Get(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("fetching course[%s]: %w", uid, err), fields)
		}
		if !c.Editable() {
			return storeError(r, fmt.Errorf("attaching to course[%s]: %w", uid, ErrNotEditable), fields)
		}
		if c.lessonIndex(lid) < 0 {
			return storeError(r, fmt.Errorf("lesson[%s]: %w", lid, ErrNotFound), fields)
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return weberr.TooLarge(fmt.Errorf("parsing multipart form: %w", err), maxUpload, weberr.WithFields(fields))
			}
			return weberr.BadRequest(fmt.Errorf("parsing multipart form: %w", err))
		}
		defer r.MultipartForm.RemoveAll()

		types := r.MultipartForm.Value["type"]
		files := r.MultipartForm.File["file"]
		if len(files) == 0 || len(types) != len(files) {
			return weberr.Invalid(fmt.Errorf("expected one type per file, got %d types and %d files", len(types), len(files)))
		}

		uploads := make([]Upload, 0, len(files))
		for i, fh := range files {
			typ := AttachmentType(types[i])
			if !typ.Valid() {
				purgeUploads(ctx, blobs, log, uploads)
				return weberr.Invalid(fmt.Errorf("unknown attachment type %q", typ))
			}

			f, err := fh.Open()
			if err != nil {
				purgeUploads(ctx, blobs, log, uploads)
				return fmt.Errorf("opening upload %q: %w", fh.Filename, err)
			}
			ref, err := blobs.Put(ctx, blob.Key(uid, lid, fh.Filename), f)
			f.Close()
			if err != nil {
				purgeUploads(ctx, blobs, log, uploads)
				return fmt.Errorf("storing upload %q: %w", fh.Filename, err)
			}

			uploads = append(uploads, Upload{Type: typ, Name: fh.Filename, Ref: ref})
		}

		handles, err := s.AttachToLesson(ctx, uid, lid, uploads)
		if err != nil {
			purgeUploads(ctx, blobs, log, uploads)
			return storeError(r, fmt.Errorf("attaching to lesson[%s] of course[%s]: %w", lid, uid, err), fields)
		}

		return web.Respond(ctx, w, struct {
			Previews []string `json:"previews"`
		}{handles}, http.StatusCreated)
	}
}

func HandleDeleteAttachment(s *Store, blobs blob.Store, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid, lid, id := web.Param(r, "uid"), web.Param(r, "lid"), web.Param(r, "id")
		fields := map[string]interface{}{"uid": uid, "lid": lid, "attachment": id}

		before, err := s.Get(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("fetching course[%s]: %w", uid, err), fields)
		}

		c, err := s.DetachFromLesson(ctx, uid, lid, id)
		if err != nil {
			return storeError(r, fmt.Errorf("detaching attachment[%s]: %w", id, err), fields)
		}

		if i := before.lessonIndex(lid); i >= 0 {
			for _, a := range before.Lessons[i].Attachments {
				if a.ID == id {
					purge(ctx, blobs, log, []Attachment{a})
				}
			}
		}

		return respondEditor(ctx, w, s, c, http.StatusOK)
	}
}

// purge removes blobs no attachment points to anymore. Failures only leave
// orphaned files behind, so they are logged and not returned.
func purge(ctx context.Context, blobs blob.Store, log logrus.FieldLogger, atts []Attachment) {
	for _, a := range atts {
		if a.Ref == "" {
			continue
		}
		if err := blobs.Delete(ctx, a.Ref); err != nil && !errors.Is(err, blob.ErrNotFound) {
			log.WithFields(logrus.Fields{"ref": a.Ref, "message": err}).Warn("orphaned blob")
		}
	}
}

func purgeUploads(ctx context.Context, blobs blob.Store, log logrus.FieldLogger, uploads []Upload) {
	atts := make([]Attachment, 0, len(uploads))
	for _, u := range uploads {
		atts = append(atts, Attachment{Ref: u.Ref})
	}
	purge(ctx, blobs, log, atts)
}
