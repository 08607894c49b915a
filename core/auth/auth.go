package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/core/claims"
	"github.com/dunetube/dunetube/i18n"
)

// Tokens maps a bearer token to the author it belongs to.
type Tokens map[string]string

// ParseTokens reads "author:token" pairs.
func ParseTokens(pairs []string) (Tokens, error) {
	out := make(Tokens, len(pairs))
	for _, p := range pairs {
		author, token, ok := strings.Cut(p, ":")
		if !ok || author == "" || token == "" {
			return nil, fmt.Errorf("malformed studio token %q, expected author:token", p)
		}
		out[token] = author
	}
	return out, nil
}

func (t Tokens) lookup(token string) (string, bool) {
	for known, author := range t {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return author, true
		}
	}
	return "", false
}

// Authenticate requires a known bearer token and stores the author in the
// request claims.
func Authenticate(tokens Tokens) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			token, ok := bearer(r)
			if !ok {
				return authRequired(r, errors.New("missing bearer token"))
			}

			author, ok := tokens.lookup(token)
			if !ok {
				return authRequired(r, errors.New("unknown bearer token"))
			}

			ctx = claims.Set(ctx, claims.Claims{AuthorID: author})
			return handler(ctx, w, r.WithContext(ctx))
		}
		return h
	}
	return m
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authRequired(r *http.Request, err error) error {
	msg := i18n.Message(web.Language(r), i18n.MsgAuthRequired)
	return weberr.NewError(err, msg, http.StatusUnauthorized)
}
