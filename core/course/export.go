package course

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/blob"
	"github.com/dunetube/dunetube/i18n"
	"github.com/dunetube/dunetube/remote"
	"github.com/sirupsen/logrus"
)

// StudioAPI is the remote studio namespace a local course is exported to.
type StudioAPI interface {
	StudioCourses(ctx context.Context) ([]remote.StudioCourse, error)
	CreateStudioCourse(ctx context.Context, sc remote.StudioCourse) (remote.StudioCourse, error)
	UpdateStudioCourse(ctx context.Context, sc remote.StudioCourse) (remote.StudioCourse, error)
	CreateStudioLesson(ctx context.Context, sl remote.StudioLesson) (remote.StudioLesson, error)
	UploadLessonFile(ctx context.Context, lessonID string, kind string, name string, r io.Reader) (remote.StudioFile, error)
}

type ExportResult struct {
	Course  remote.StudioCourse   `json:"course"`
	Lessons []remote.StudioLesson `json:"lessons"`
	Files   []remote.StudioFile   `json:"files"`
}

// Export creates c on the remote studio as a draft with its lessons in
// display order and every attachment uploaded, then applies the local status
// when it is not draft. The first failure stops the export; whatever was
// created remotely so far stays there.
func Export(ctx context.Context, api StudioAPI, blobs blob.Store, c Course) (ExportResult, error) {
	var res ExportResult

	sc, err := api.CreateStudioCourse(ctx, remote.StudioCourse{Title: c.Title, Status: string(Draft)})
	if err != nil {
		return res, err
	}
	res.Course = sc

	for i, l := range c.Lessons {
		sl, err := api.CreateStudioLesson(ctx, remote.StudioLesson{CourseID: sc.ID, Title: l.Title, Order: i + 1})
		if err != nil {
			return res, fmt.Errorf("lesson[%s]: %w", l.LID, err)
		}
		res.Lessons = append(res.Lessons, sl)

		for _, a := range l.Attachments {
			f, err := exportFile(ctx, api, blobs, string(sl.ID), a)
			if err != nil {
				return res, fmt.Errorf("attachment[%s]: %w", a.ID, err)
			}
			res.Files = append(res.Files, f)
		}
	}

	if c.Status != Draft {
		sc.Status = string(c.Status)
		if res.Course, err = api.UpdateStudioCourse(ctx, sc); err != nil {
			return res, fmt.Errorf("setting status %s: %w", c.Status, err)
		}
	}
	return res, nil
}

func exportFile(ctx context.Context, api StudioAPI, blobs blob.Store, lessonID string, a Attachment) (remote.StudioFile, error) {
	rc, err := blobs.Open(ctx, a.Ref)
	if err != nil {
		return remote.StudioFile{}, err
	}
	defer rc.Close()

	return api.UploadLessonFile(ctx, lessonID, string(a.Type), a.Name, rc)
}

func remoteError(r *http.Request, err error, fields map[string]interface{}) error {
	opt := weberr.WithFields(fields)

	switch {
	case errors.Is(err, remote.ErrAuthRequired):
		msg := i18n.Message(web.Language(r), i18n.MsgAuthRequired)
		return weberr.NewError(err, msg, http.StatusUnauthorized, opt)
	case errors.Is(err, blob.ErrNotFound):
		return weberr.Conflict(err, opt)
	}
	return weberr.BadGateway(err, opt)
}

func HandleExport(s *Store, blobs blob.Store, api StudioAPI, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		uid := web.Param(r, "uid")
		fields := map[string]interface{}{"uid": uid}

		c, err := s.Get(ctx, uid)
		if err != nil {
			return storeError(r, fmt.Errorf("fetching course[%s]: %w", uid, err), fields)
		}

		res, err := Export(ctx, api, blobs, c)
		if err != nil {
			return remoteError(r, fmt.Errorf("exporting course[%s]: %w", uid, err), fields)
		}

		log.WithFields(logrus.Fields{
			"uid":     uid,
			"remote":  res.Course.ID,
			"lessons": len(res.Lessons),
			"files":   len(res.Files),
		}).Info("course exported")

		return web.Respond(ctx, w, res, http.StatusCreated)
	}
}

func HandleRemoteList(api StudioAPI) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courses, err := api.StudioCourses(ctx)
		if err != nil {
			return remoteError(r, fmt.Errorf("listing remote studio courses: %w", err), nil)
		}
		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}
