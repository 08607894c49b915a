// Package weberr decorates errors with the HTTP answer and the log fields the
// errors middleware should use for them.
package weberr

import (
	"errors"
	"net/http"
)

type Opt func(error) error

func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}

type responseError struct {
	error
	body   any
	status int
}

func (e *responseError) Unwrap() error { return e.error }

type fieldsError struct {
	error
	fields map[string]any
}

func (e *fieldsError) Unwrap() error { return e.error }

// Response returns the outermost answer attached to err.
func Response(err error) (body any, status int, ok bool) {
	var re *responseError
	if errors.As(err, &re) {
		return re.body, re.status, true
	}
	return nil, 0, false
}

// Status is the code Response would answer with, 500 when none is attached.
func Status(err error) int {
	if _, status, ok := Response(err); ok {
		return status
	}
	return http.StatusInternalServerError
}

// Fields merges the log fields of every layer of err. On duplicate keys the
// outer layer wins.
func Fields(err error) (map[string]any, bool) {
	var out map[string]any
	for e := err; e != nil; e = errors.Unwrap(e) {
		fe, ok := e.(*fieldsError)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(fe.fields))
		}
		for k, v := range fe.fields {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out, out != nil
}
