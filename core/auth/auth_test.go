package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/core/claims"
)

func TestAuthenticate(t *testing.T) {
	tokens, err := ParseTokens([]string{"alice:secret-a", "bob:secret-b"})
	if err != nil {
		t.Fatal(err)
	}

	var author string
	h := Authenticate(tokens)(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := claims.Get(ctx)
		if err != nil {
			return err
		}
		author = c.AuthorID
		return nil
	})

	tests := []struct {
		header string
		status int
		author string
	}{
		{"Bearer secret-b", 0, "bob"},
		{"bearer secret-a", 0, "alice"},
		{"", http.StatusUnauthorized, ""},
		{"Bearer ", http.StatusUnauthorized, ""},
		{"Basic secret-a", http.StatusUnauthorized, ""},
		{"Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		author = ""
		r := httptest.NewRequest(http.MethodGet, "/studio/courses", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}

		err := h(r.Context(), httptest.NewRecorder(), r)

		_, status, _ := weberr.Response(err)
		if status != tt.status {
			t.Fatalf("header %q: expected status %d, got %d (%v)", tt.header, tt.status, status, err)
		}
		if author != tt.author {
			t.Fatalf("header %q: expected author %q, got %q", tt.header, tt.author, author)
		}
	}
}

func TestParseTokensRejectsMalformed(t *testing.T) {
	if _, err := ParseTokens([]string{"no-separator"}); err == nil {
		t.Fatal("expected an error")
	}
}
