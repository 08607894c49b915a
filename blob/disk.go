package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Disk keeps blobs under a root directory. Refs are slash separated paths
// relative to it.
type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob dir: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) path(ref string) (string, error) {
	p := filepath.Join(d.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(d.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("ref %q escapes the blob dir", ref)
	}
	return p, nil
}

func (d *Disk) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	p, err := d.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("creating dir for %q: %w", key, err)
	}

	f, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %q: %w", key, err)
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return "", fmt.Errorf("moving %q in place: %w", key, err)
	}
	return key, nil
}

func (d *Disk) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := d.path(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *Disk) Delete(ctx context.Context, ref string) error {
	p, err := d.path(ref)
	if err != nil {
		return err
	}

	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
