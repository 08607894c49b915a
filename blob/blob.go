// Package blob stores uploaded attachment files. A ref returned by Put is the
// only thing the course store keeps about the bytes.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/dunetube/dunetube/random"
)

var ErrNotFound = errors.New("blob: not found")

type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// Key builds a collision resistant object key for a lesson upload.
func Key(courseUID, lessonLID, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return path.Join("courses", courseUID, "lessons", lessonLID, random.String(12)+"-"+base)
}
