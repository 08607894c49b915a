// Package cache keeps recently fetched catalog pages in Redis so repeated
// views of the same query skip the remote API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dunetube/dunetube/remote"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "catalog:list:"

// Lister is satisfied by remote.Client and by Catalog itself.
type Lister interface {
	ListCourses(ctx context.Context, p remote.ListParams) (remote.CoursePage, error)
}

// Catalog wraps a Lister with a read-through page cache. Redis failures are
// logged and the request falls through to the wrapped Lister.
type Catalog struct {
	next Lister
	rdb  *redis.Client
	ttl  time.Duration
	log  logrus.FieldLogger
}

func NewCatalog(log logrus.FieldLogger, rdb *redis.Client, ttl time.Duration, next Lister) *Catalog {
	return &Catalog{next: next, rdb: rdb, ttl: ttl, log: log}
}

func Key(p remote.ListParams) string {
	return keyPrefix + p.Encode()
}

func (c *Catalog) ListCourses(ctx context.Context, p remote.ListParams) (remote.CoursePage, error) {
	key := Key(p)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var page remote.CoursePage
		if err := json.Unmarshal(raw, &page); err == nil {
			return page, nil
		}
		c.log.WithField("key", key).Warn("dropping undecodable catalog cache entry")
	case !errors.Is(err, redis.Nil):
		c.log.WithField("key", key).WithError(err).Warn("catalog cache read failed")
	}

	page, err := c.next.ListCourses(ctx, p)
	if err != nil {
		return remote.CoursePage{}, err
	}

	b, err := json.Marshal(page)
	if err != nil {
		return page, nil
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.WithField("key", key).WithError(err).Warn("catalog cache write failed")
	}
	return page, nil
}

// Invalidate drops every cached catalog page.
func (c *Catalog) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
