package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dunetube/dunetube/api"
	"github.com/dunetube/dunetube/blob"
	"github.com/dunetube/dunetube/core/auth"
	"github.com/dunetube/dunetube/core/course"
	"github.com/dunetube/dunetube/core/health"
	"github.com/dunetube/dunetube/core/preview"
	"github.com/dunetube/dunetube/device"
	"github.com/dunetube/dunetube/rate"
	"github.com/dunetube/dunetube/remote"
	"github.com/dunetube/dunetube/storage"
	"github.com/sirupsen/logrus"
)

const (
	studioAuthor = "alice"
	studioToken  = "studio-secret"
	remoteToken  = "remote-secret"
)

type TestEnv struct {
	*httptest.Server
	Remote *mockRemote
	Blobs  blob.Store
	// KV is the device storage behind the server, for tests that play a
	// second writer.
	KV  storage.Storage
	Log logrus.FieldLogger
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	mr := newMockRemote()
	rs := httptest.NewServer(mr.handle())
	t.Cleanup(rs.Close)

	kv := storage.NewMemory()
	dev := device.New(kv)

	client, err := remote.New(log, rs.URL+"/api", remote.WithTokenSource(dev))
	if err != nil {
		t.Fatalf("building remote client: %v", err)
	}

	blobs, err := blob.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("preparing blob dir: %v", err)
	}

	signer, err := preview.NewSigner(time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	store := course.NewStore(log, kv, "", course.WithPreviewer(signer))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("initializing store: %v", err)
	}

	tokens, err := auth.ParseTokens([]string{studioAuthor + ":" + studioToken})
	if err != nil {
		t.Fatal(err)
	}

	limiter := rate.NewLimiter(1000, time.Minute, 1000)
	t.Cleanup(limiter.Close)

	mux := api.APIMux(api.APIConfig{
		Log:      log,
		Store:    store,
		Blobs:    blobs,
		Previews: signer,
		Tokens:   tokens,
		Limiter:  limiter,
		Device:   dev,
		Catalog:  client,
		Details:  client,
		PageSize: 2,
		// Small enough for tests to exceed.
		MaxUpload: 1 << 20,
		Studio:   client,
		Wallet:   client,
		Checks: map[string]health.Check{
			"remote": func(ctx context.Context) error { _, err := client.Health(ctx); return err },
		},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &TestEnv{Server: srv, Remote: mr, Blobs: blobs, KV: kv, Log: log}
}

// do sends body as JSON when it is not nil and decodes a JSON answer into
// out when out is not nil. It returns the status code.
func (env *TestEnv) do(t *testing.T, method string, path string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("Authorization", "Bearer "+studioToken)

	return env.send(t, r, out)
}

// anonymous builds a request that carries no studio token.
func (env *TestEnv) anonymous(t *testing.T, method string, path string, body string) *http.Request {
	t.Helper()

	r, err := http.NewRequest(method, env.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

func (env *TestEnv) send(t *testing.T, r *http.Request, out any) int {
	t.Helper()

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: cannot decode response: %v", r.Method, r.URL.Path, err)
		}
	}
	return w.StatusCode
}

func expectStatus(t *testing.T, what string, want, got int) {
	t.Helper()
	if want != got {
		t.Fatalf("%s: expected status %d, got %d", what, want, got)
	}
}

func ptr[T any](v T) *T { return &v }
