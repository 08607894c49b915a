package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dunetube/dunetube/remote"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func newClient(t *testing.T, r *mux.Router, opts ...remote.Option) *remote.Client {
	t.Helper()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	c, err := remote.New(log, srv.URL+"/api", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestListCourses(t *testing.T) {
	var got map[string]string

	r := mux.NewRouter()
	r.HandleFunc("/api/courses/", func(w http.ResponseWriter, req *http.Request) {
		got = map[string]string{}
		for k := range req.URL.Query() {
			got[k] = req.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"count": 13, "next": "http://x/api/courses/?page=3", "previous": null,
			"results": [{"id": 7, "title": "Go"}, {"id": "abc", "title": "Rust"}]}`)
	}).Methods(http.MethodGet)

	c := newClient(t, r)

	page, err := c.ListCourses(context.Background(), remote.ListParams{Page: 2, PageSize: 12, Search: "go", Ordering: "title"})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"page": "2", "page_size": "12", "search": "go", "ordering": "title"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}

	if page.Count != 13 || !page.HasNext() || page.HasPrevious() {
		t.Fatalf("unexpected page flags: %+v", page)
	}
	ids := []remote.ID{page.Results[0].ID, page.Results[1].ID}
	if diff := cmp.Diff([]remote.ID{"7", "abc"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestListLessonsShapes(t *testing.T) {
	bodies := map[string]string{
		"array":    `[{"id": 1, "title": "Intro", "order": 1}, {"id": 2, "title": "Setup", "order": 2}]`,
		"envelope": `{"count": 2, "results": [{"id": 1, "title": "Intro", "order": 1}, {"id": 2, "title": "Setup", "order": 2}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			r := mux.NewRouter()
			r.HandleFunc("/api/lessons/", func(w http.ResponseWriter, req *http.Request) {
				if req.URL.Query().Get("course") != "7" || req.URL.Query().Get("ordering") != "order" {
					http.Error(w, "bad query", http.StatusBadRequest)
					return
				}
				io.WriteString(w, body)
			})

			lessons, err := newClient(t, r).ListLessons(context.Background(), "7")
			if err != nil {
				t.Fatal(err)
			}

			var titles []string
			for _, l := range lessons {
				titles = append(titles, l.Title)
			}
			if diff := cmp.Diff([]string{"Intro", "Setup"}, titles); diff != "" {
				t.Fatalf("titles mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/courses/{id}/", func(w http.ResponseWriter, req *http.Request) {
		switch mux.Vars(req)["id"] {
		case "missing":
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "<html>upstream down</html>")
		default:
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]any{"id": []string{"invalid"}}})
		}
	})

	c := newClient(t, r)
	ctx := context.Background()

	_, err := c.GetCourse(ctx, "missing")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = c.GetCourse(ctx, "broken")
	var rerr *remote.Error
	if !errors.As(err, &rerr) || rerr.Status != http.StatusBadGateway || rerr.Detail != "" {
		t.Fatalf("expected a bare 502 error, got %v", err)
	}

	_, err = c.GetCourse(ctx, "other")
	if !errors.As(err, &rerr) || rerr.Errors["id"] == nil {
		t.Fatalf("expected field errors, got %v", err)
	}
}

func TestAuthRequired(t *testing.T) {
	var calls int
	r := mux.NewRouter()
	r.HandleFunc("/api/wallet/transactions/", func(w http.ResponseWriter, req *http.Request) {
		calls++
		if req.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `[{"id": 1, "kind": "purchase", "amount": "10.00", "currency": "USD"}]`)
	})

	c := newClient(t, r)
	ctx := context.Background()

	if _, err := c.Transactions(ctx); !errors.Is(err, remote.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no request without a token, got %d", calls)
	}

	txs, err := c.WithToken(remote.StaticToken("tok")).Transactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Amount != "10.00" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}

	if _, err := c.WithToken(remote.StaticToken("wrong")).Transactions(ctx); !errors.Is(err, remote.ErrAuthRequired) {
		t.Fatalf("expected 401 to match ErrAuthRequired, got %v", err)
	}
}

func TestUploadLessonFile(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/studio/lessons/{id}/upload/", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, hdr, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)

		writeJSON(w, http.StatusCreated, remote.StudioFile{
			ID:   remote.ID(mux.Vars(req)["id"]),
			Kind: req.FormValue("kind"),
			Name: hdr.Filename,
			URL:  string(b),
		})
	}).Methods(http.MethodPost)

	c := newClient(t, r, remote.WithTokenSource(remote.StaticToken("tok")))

	got, err := c.UploadLessonFile(context.Background(), "9", "pdf", "notes.pdf", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}

	want := remote.StudioFile{ID: "9", Kind: "pdf", Name: "notes.pdf", URL: "payload"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("upload mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadLessonFileStreams(t *testing.T) {
	const size = 8 << 20

	r := mux.NewRouter()
	r.HandleFunc("/api/studio/lessons/{id}/upload/", func(w http.ResponseWriter, req *http.Request) {
		if req.ContentLength != -1 {
			http.Error(w, "expected a streamed body", http.StatusBadRequest)
			return
		}
		mr, err := req.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var n int64
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if part.FormName() == "file" {
				n, _ = io.Copy(io.Discard, part)
			}
		}
		writeJSON(w, http.StatusCreated, remote.StudioFile{ID: "1", Kind: "video", URL: strconv.FormatInt(n, 10)})
	}).Methods(http.MethodPost)

	c := newClient(t, r, remote.WithTokenSource(remote.StaticToken("tok")))
	ctx := context.Background()

	got, err := c.UploadLessonFile(ctx, "9", "video", "talk.mp4", io.LimitReader(zeros{}, size))
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != strconv.Itoa(size) {
		t.Fatalf("expected the server to read %d bytes, got %s", size, got.URL)
	}

	// Without a token nothing reads the body; the call must still return.
	_, err = newClient(t, r).UploadLessonFile(ctx, "9", "video", "talk.mp4", io.LimitReader(zeros{}, size))
	if !errors.Is(err, remote.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestHealth(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/healthz/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, remote.Health{OK: true, Service: "dunetube-api"})
	})

	h, err := newClient(t, r, remote.WithRate(100, 1)).Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !h.OK || h.Service != "dunetube-api" {
		t.Fatalf("unexpected health: %+v", h)
	}
}
