package cache_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dunetube/dunetube/cache"
	"github.com/dunetube/dunetube/remote"
	"github.com/google/go-cmp/cmp"
	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type countingLister struct {
	calls int
}

func (c *countingLister) ListCourses(ctx context.Context, p remote.ListParams) (remote.CoursePage, error) {
	c.calls++
	return remote.CoursePage{Count: 1, Results: []remote.Course{{ID: "1", Title: p.Search}}}, nil
}

func discard() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestKey(t *testing.T) {
	a := cache.Key(remote.ListParams{Page: 2, PageSize: 12, Search: "go", Ordering: "title"})
	b := cache.Key(remote.ListParams{Ordering: "title", Search: "go", PageSize: 12, Page: 2})
	if a != b || a != "catalog:list:ordering=title&page=2&page_size=12&search=go" {
		t.Fatalf("unexpected keys %q %q", a, b)
	}
}

func TestUnreachableRedisFallsThrough(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	next := &countingLister{}
	c := cache.NewCatalog(discard(), rdb, time.Minute, next)

	page, err := c.ListCourses(context.Background(), remote.ListParams{Search: "go"})
	if err != nil {
		t.Fatal(err)
	}
	if next.calls != 1 || page.Results[0].Title != "go" {
		t.Fatalf("expected a pass-through fetch, got calls=%d page=%+v", next.calls, page)
	}
}

func TestCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping docker backed test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = 60 * time.Second

	res, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		t.Fatalf("starting redis: %v", err)
	}
	t.Cleanup(func() { pool.Purge(res) })
	_ = res.Expire(120)

	rdb := redis.NewClient(&redis.Options{Addr: res.GetHostPort("6379/tcp")})
	defer rdb.Close()

	ctx := context.Background()
	if err := pool.Retry(func() error { return rdb.Ping(ctx).Err() }); err != nil {
		t.Fatalf("waiting for redis: %v", err)
	}

	next := &countingLister{}
	c := cache.NewCatalog(discard(), rdb, time.Minute, next)

	p := remote.ListParams{Page: 1, PageSize: 12, Search: "go"}
	first, err := c.ListCourses(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.ListCourses(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if next.calls != 1 {
		t.Fatalf("expected the second call to hit the cache, got %d fetches", next.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached page mismatch (-want +got):\n%s", diff)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListCourses(ctx, p); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Fatalf("expected a fetch after invalidation, got %d", next.calls)
	}
}
