package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	type body struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "single value", in: `{"title":"Go"}`},
		{name: "unknown field", in: `{"title":"Go","price":1}`, wantErr: true},
		{name: "trailing value", in: `{"title":"Go"} {"title":"Rust"}`, wantErr: true},
		{name: "empty", in: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.in))
			var b body
			err := Decode(httptest.NewRecorder(), r, &b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLanguage(t *testing.T) {
	tests := map[string]string{
		"":                    "en",
		"id-ID,id;q=0.9":      "id",
		"fr-FR, en;q=0.5":     "en",
		"de":                  "en",
		"ID":                  "id",
		"en-GB;q=0.8, id;q=1": "en",
	}

	for header, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept-Language", header)
		if got := Language(r); got != want {
			t.Errorf("%q: expected %s, got %s", header, want, got)
		}
	}
}
