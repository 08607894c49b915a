package course

import "time"

type Course struct {
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Lessons   []Lesson  `json:"lessons"`
	Students  *int      `json:"students,omitempty"`
	Rating    *float64  `json:"rating,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Editable reports whether the title and lessons may change.
func (c Course) Editable() bool {
	return c.Status == Draft
}

func (c Course) lessonIndex(lid string) int {
	for i, l := range c.Lessons {
		if l.LID == lid {
			return i
		}
	}
	return -1
}

// clone returns a deep copy so callers never alias the store's cache.
func (c Course) clone() Course {
	out := c
	if c.Students != nil {
		s := *c.Students
		out.Students = &s
	}
	if c.Rating != nil {
		r := *c.Rating
		out.Rating = &r
	}
	out.Lessons = make([]Lesson, len(c.Lessons))
	for i, l := range c.Lessons {
		out.Lessons[i] = l
		out.Lessons[i].Attachments = append([]Attachment{}, l.Attachments...)
	}
	return out
}

// sameStructure reports whether a and b agree on everything a non-draft
// course must keep: title, status, lessons and their attachments.
func sameStructure(a, b Course) bool {
	if a.Title != b.Title || a.Status != b.Status || len(a.Lessons) != len(b.Lessons) {
		return false
	}
	for i, l := range a.Lessons {
		o := b.Lessons[i]
		if l.LID != o.LID || l.Title != o.Title || len(l.Attachments) != len(o.Attachments) {
			return false
		}
		for j, att := range l.Attachments {
			if att != o.Attachments[j] {
				return false
			}
		}
	}
	return true
}

type Lesson struct {
	LID         string       `json:"lid"`
	Title       string       `json:"title"`
	Attachments []Attachment `json:"attachments"`
}

type AttachmentType string

const (
	Video    AttachmentType = "video"
	PDF      AttachmentType = "pdf"
	Slide    AttachmentType = "slide"
	Exercise AttachmentType = "exercise"
	Other    AttachmentType = "other"
)

func (t AttachmentType) Valid() bool {
	switch t {
	case Video, PDF, Slide, Exercise, Other:
		return true
	}
	return false
}

// Attachment holds durable metadata only. Ref points at the uploaded blob;
// preview handles are derived from it on demand and never stored.
type Attachment struct {
	ID   string         `json:"id"`
	Type AttachmentType `json:"type"`
	Name string         `json:"name"`
	Ref  string         `json:"ref"`
}

// Upload describes a file already written to blob storage and waiting to be
// attached to a lesson.
type Upload struct {
	Type AttachmentType
	Name string
	Ref  string
}

type MigrationOffer struct {
	FromUID   string    `json:"fromUid"`
	ToUID     string    `json:"toUid"`
	Learners  int       `json:"learners"`
	OfferedAt time.Time `json:"offeredAt"`
}

type CourseNew struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

type CourseUp struct {
	Title string `json:"title" validate:"required,max=200"`
}

type LessonNew struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

type LessonUp struct {
	Title string `json:"title" validate:"required,max=200"`
}

type LessonMove struct {
	From *int `json:"from" validate:"required"`
	To   *int `json:"to" validate:"required"`
}

type MigrationNew struct {
	TargetUID string `json:"targetUid" validate:"required,uuid"`
}
