package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrNotFound     = errors.New("remote: not found")
	ErrAuthRequired = errors.New("remote: no bearer token available")
)

// Error is a non-2xx answer. Detail and Errors come from a
// {"detail": ..., "errors": {...}} body when the server sent one.
type Error struct {
	Status int
	Detail string
	Errors map[string]any
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("remote: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, http.StatusText(e.Status))
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrAuthRequired:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// readError builds an Error from resp. Bodies that are not JSON are ignored.
func readError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}

	var body struct {
		Detail string         `json:"detail"`
		Errors map[string]any `json:"errors"`
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && json.Unmarshal(b, &body) == nil {
		e.Detail = body.Detail
		e.Errors = body.Errors
	}
	return e
}
