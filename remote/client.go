// Package remote talks to the DuneTube REST backend: the public course
// catalog, the bearer authenticated studio and wallet endpoints, and the
// health check.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// TokenSource yields the bearer token for authenticated endpoints. ok is
// false when the user is signed out.
type TokenSource interface {
	Token(ctx context.Context) (token string, ok bool, err error)
}

type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, bool, error) {
	return string(t), t != "", nil
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRate throttles outgoing requests to rps with the given burst.
func WithRate(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
	log     logrus.FieldLogger
}

func New(log logrus.FieldLogger, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		limiter: rate.NewLimiter(rate.Inf, 0),
		tokens:  StaticToken(""),
		log:     log.WithField("remote", u.Host),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithToken returns a copy of c that authenticates with ts.
func (c *Client) WithToken(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

type request struct {
	method string
	path   string
	query  url.Values
	body   io.Reader
	ctype  string
	auth   bool
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.path, "/")})
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	r, err := http.NewRequestWithContext(ctx, req.method, u.String(), req.body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	r.Header.Set("Accept", "application/json")
	if req.ctype != "" {
		r.Header.Set("Content-Type", req.ctype)
	}

	if req.auth {
		token, ok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("reading bearer token: %w", err)
		}
		if !ok {
			return ErrAuthRequired
		}
		r.Header.Set("Authorization", "Bearer "+token)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := c.http.Do(r)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, u.Path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":     req.method,
		"path":       u.Path,
		"statuscode": resp.StatusCode,
	}).Debug("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", req.method, u.Path, err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// decodeList accepts either a bare JSON array or a {"results": [...]} envelope.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)

	var out []T
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var env struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}
