package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/core/claims"
	"github.com/dunetube/dunetube/rate"
)

// RateLimit buckets requests by authenticated author, or by remote IP for
// anonymous requests.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := clientID(ctx, r)

			if !lim.Check(id) {
				return weberr.TooManyRequests(errors.New("rate limit exceeded"),
					weberr.WithFields(map[string]interface{}{"client": id}))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func clientID(ctx context.Context, r *http.Request) string {
	if c, err := claims.Get(ctx); err == nil {
		return "author:" + c.AuthorID
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
