// Package storage provides the string-valued key-value backends that hold the
// device-local state: the studio course collection, display preferences, the
// bearer token and per-learner data.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrConflict is returned by CompareAndSwap when the stored value is not
	// the one the caller expected.
	ErrConflict = errors.New("storage: value changed by another writer")
)

type Storage interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	// CompareAndSwap writes next only if the current value equals old. An
	// empty old matches an absent key. It returns ErrConflict otherwise.
	CompareAndSwap(ctx context.Context, key string, old string, next string) error
}
