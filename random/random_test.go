package random

import (
	"strings"
	"testing"
)

func TestStringSecure(t *testing.T) {
	a, err := StringSecure(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := StringSecure(32)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("expected 32 chars, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Fatal("expected two different secrets")
	}
	for _, r := range a + String(16) {
		if !strings.ContainsRune(charset, r) {
			t.Fatalf("unexpected rune %q", r)
		}
	}
}
