package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDisk(t *testing.T) {
	ctx := context.Background()

	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := Key("c1", "l1", `C:\Users\me\intro.mp4`)
	if !strings.HasPrefix(key, "courses/c1/lessons/l1/") || !strings.HasSuffix(key, "-intro.mp4") {
		t.Fatalf("unexpected key %q", key)
	}

	ref, err := d.Put(ctx, key, strings.NewReader("frames"))
	if err != nil {
		t.Fatal(err)
	}

	rc, err := d.Open(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "frames" {
		t.Fatalf("expected stored bytes, got %q", b)
	}

	if err := d.Delete(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Open(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := d.Open(ctx, "../../etc/passwd"); err == nil {
		t.Fatal("expected ref outside the root to be rejected")
	}
}
