package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

type StudioCourse struct {
	ID     ID     `json:"id,omitempty"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

type StudioLesson struct {
	ID       ID     `json:"id,omitempty"`
	CourseID ID     `json:"course"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
}

type StudioFile struct {
	ID   ID     `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (c *Client) StudioCourses(ctx context.Context) ([]StudioCourse, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{method: http.MethodGet, path: "studio/courses/", auth: true}, &raw)
	if err != nil {
		return nil, fmt.Errorf("listing studio courses: %w", err)
	}

	courses, err := decodeList[StudioCourse](raw)
	if err != nil {
		return nil, fmt.Errorf("decoding studio courses: %w", err)
	}
	return courses, nil
}

func (c *Client) CreateStudioCourse(ctx context.Context, sc StudioCourse) (StudioCourse, error) {
	body, err := jsonBody(sc)
	if err != nil {
		return StudioCourse{}, err
	}

	var out StudioCourse
	err = c.do(ctx, request{method: http.MethodPost, path: "studio/courses/", body: body, ctype: "application/json", auth: true}, &out)
	if err != nil {
		return StudioCourse{}, fmt.Errorf("creating studio course: %w", err)
	}
	return out, nil
}

func (c *Client) UpdateStudioCourse(ctx context.Context, sc StudioCourse) (StudioCourse, error) {
	body, err := jsonBody(sc)
	if err != nil {
		return StudioCourse{}, err
	}

	var out StudioCourse
	path := "studio/courses/" + url.PathEscape(string(sc.ID)) + "/"
	err = c.do(ctx, request{method: http.MethodPatch, path: path, body: body, ctype: "application/json", auth: true}, &out)
	if err != nil {
		return StudioCourse{}, fmt.Errorf("updating studio course[%s]: %w", sc.ID, err)
	}
	return out, nil
}

func (c *Client) CreateStudioLesson(ctx context.Context, sl StudioLesson) (StudioLesson, error) {
	body, err := jsonBody(sl)
	if err != nil {
		return StudioLesson{}, err
	}

	var out StudioLesson
	err = c.do(ctx, request{method: http.MethodPost, path: "studio/lessons/", body: body, ctype: "application/json", auth: true}, &out)
	if err != nil {
		return StudioLesson{}, fmt.Errorf("creating studio lesson: %w", err)
	}
	return out, nil
}

// UploadLessonFile streams one file as multipart/form-data with "kind" and
// "file" fields. The body is never buffered whole.
func (c *Client) UploadLessonFile(ctx context.Context, lessonID string, kind string, name string, r io.Reader) (StudioFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	ctype := mw.FormDataContentType()

	go func() {
		pw.CloseWithError(writeUpload(mw, kind, name, r))
	}()

	var out StudioFile
	path := "studio/lessons/" + url.PathEscape(lessonID) + "/upload/"
	err := c.do(ctx, request{method: http.MethodPost, path: path, body: pr, ctype: ctype, auth: true}, &out)
	// Unblocks the writer when the request never consumed the body.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return StudioFile{}, fmt.Errorf("uploading %q to lesson[%s]: %w", name, lessonID, err)
	}
	return out, nil
}

func writeUpload(mw *multipart.Writer, kind, name string, r io.Reader) error {
	if err := mw.WriteField("kind", kind); err != nil {
		return fmt.Errorf("writing kind field: %w", err)
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("creating file field: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("copying %q: %w", name, err)
	}
	return mw.Close()
}
