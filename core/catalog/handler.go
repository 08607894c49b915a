package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/sirupsen/logrus"
)

type listResponse struct {
	State
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// HandleList serves the catalog grid. A request whose query string is not in
// canonical form is redirected to the canonical URL first, so every view has
// exactly one address.
func HandleList(log logrus.FieldLogger, courses Lister, pageSize int) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v := r.URL.Query()

		canonical := ParseQuery(v).Encode()
		if r.URL.RawQuery != canonical {
			u := *r.URL
			u.RawQuery = canonical
			http.Redirect(w, r, u.RequestURI(), http.StatusFound)
			return nil
		}

		c := NewController(log, courses, WithPageSize(pageSize), WithLanguage(web.Language(r)))
		s, err := c.Sync(ctx, v)

		resp := listResponse{State: s, Next: s.NextURL(), Previous: s.PreviousURL()}
		if err != nil {
			return weberr.Wrap(err, weberr.WithResponse(resp, http.StatusBadGateway))
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleShow(log logrus.FieldLogger, src DetailSource) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		v := NewDetailView(log, src, web.Language(r))
		defer v.Close()

		s, err := v.Show(ctx, id)
		switch {
		case s.NotFound:
			return weberr.Wrap(err, weberr.WithResponse(s, http.StatusNotFound))
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			return weberr.Wrap(err, weberr.WithResponse(s, http.StatusBadGateway))
		}
		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

// Invalidator drops cached catalog pages.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

func HandleRefresh(inv Invalidator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := inv.Invalidate(ctx); err != nil {
			return weberr.BadGateway(err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
