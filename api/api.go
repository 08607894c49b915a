package api

import (
	"context"
	"net/http"

	"github.com/dunetube/dunetube/api/middleware"
	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/blob"
	"github.com/dunetube/dunetube/core/auth"
	"github.com/dunetube/dunetube/core/catalog"
	"github.com/dunetube/dunetube/core/course"
	"github.com/dunetube/dunetube/core/health"
	"github.com/dunetube/dunetube/core/preview"
	"github.com/dunetube/dunetube/core/wallet"
	"github.com/dunetube/dunetube/device"
	"github.com/dunetube/dunetube/rate"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	Store      *course.Store
	Blobs      blob.Store
	Previews   *preview.Signer
	Tokens     auth.Tokens
	Limiter    *rate.Limiter
	Device     *device.Device

	Catalog  catalog.Lister
	Details  catalog.DetailSource
	PageSize int
	// CatalogCache is nil when catalog pages are not cached.
	CatalogCache catalog.Invalidator

	// MaxUpload caps attachment request bodies; zero means
	// course.DefaultMaxUpload.
	MaxUpload int64

	Studio course.StudioAPI
	Wallet wallet.Source
	Checks map[string]health.Check
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Tokens)
	limit := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodGet, "/healthz", health.HandleHealth(cfg.Log, cfg.Checks))

	a.Handle(http.MethodGet, "/catalog", catalog.HandleList(cfg.Log, cfg.Catalog, cfg.PageSize), limit)
	a.Handle(http.MethodGet, "/catalog/courses/{id}", catalog.HandleShow(cfg.Log, cfg.Details), limit)
	if cfg.CatalogCache != nil {
		a.Handle(http.MethodPost, "/catalog/refresh", catalog.HandleRefresh(cfg.CatalogCache), authen, limit)
	}

	s := cfg.Store
	maxUpload := cfg.MaxUpload
	if maxUpload <= 0 {
		maxUpload = course.DefaultMaxUpload
	}
	a.Handle(http.MethodGet, "/studio/courses", course.HandleList(s), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses", course.HandleCreate(s), authen, limit)
	a.Handle(http.MethodGet, "/studio/courses/{uid}", course.HandleShow(s), authen, limit)
	a.Handle(http.MethodPut, "/studio/courses/{uid}", course.HandleUpdate(s), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/duplicate", course.HandleDuplicate(s), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/publish", course.HandleTransition(s, course.Publish), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/pause", course.HandleTransition(s, course.Pause), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/resume", course.HandleTransition(s, course.Resume), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/migration-offer", course.HandleMigrationOffer(s), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/export", course.HandleExport(s, cfg.Blobs, cfg.Studio, cfg.Log), authen, limit)

	a.Handle(http.MethodPost, "/studio/courses/{uid}/lessons", course.HandleCreateLesson(s), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/lessons/move", course.HandleMoveLesson(s), authen, limit)
	a.Handle(http.MethodPut, "/studio/courses/{uid}/lessons/{lid}", course.HandleUpdateLesson(s), authen, limit)
	a.Handle(http.MethodDelete, "/studio/courses/{uid}/lessons/{lid}", course.HandleDeleteLesson(s, cfg.Blobs, cfg.Log), authen, limit)
	a.Handle(http.MethodPost, "/studio/courses/{uid}/lessons/{lid}/attachments", course.HandleCreateAttachments(s, cfg.Blobs, maxUpload, cfg.Log), authen, limit)
	a.Handle(http.MethodDelete, "/studio/courses/{uid}/lessons/{lid}/attachments/{id}", course.HandleDeleteAttachment(s, cfg.Blobs, cfg.Log), authen, limit)

	a.Handle(http.MethodGet, "/studio/remote/courses", course.HandleRemoteList(cfg.Studio), authen, limit)

	a.Handle(http.MethodGet, "/previews/{handle}", preview.HandleShow(cfg.Previews, cfg.Blobs), limit)

	a.Handle(http.MethodGet, "/wallet/transactions", wallet.HandleTransactions(cfg.Wallet), authen, limit)
	a.Handle(http.MethodGet, "/wallet/invoices", wallet.HandleInvoices(cfg.Wallet), authen, limit)

	d := cfg.Device
	a.Handle(http.MethodGet, "/device/preferences", device.HandleShowPreferences(d))
	a.Handle(http.MethodPut, "/device/preferences", device.HandleUpdatePreferences(d))
	a.Handle(http.MethodGet, "/device/language", device.HandleShowLanguage(d))
	a.Handle(http.MethodPut, "/device/language", device.HandleUpdateLanguage(d))
	a.Handle(http.MethodPut, "/device/token", device.HandleUpdateToken(d), authen, limit)
	a.Handle(http.MethodDelete, "/device/token", device.HandleDeleteToken(d), authen, limit)
	a.Handle(http.MethodGet, "/device/wishlist", device.HandleShowWishlist(d))
	a.Handle(http.MethodPut, "/device/wishlist/{course_id}", device.HandleAddToWishlist(d))
	a.Handle(http.MethodDelete, "/device/wishlist/{course_id}", device.HandleRemoveFromWishlist(d))
	a.Handle(http.MethodGet, "/device/progress/{lesson_id}", device.HandleShowProgress(d))
	a.Handle(http.MethodPut, "/device/progress/{lesson_id}", device.HandleUpdateProgress(d))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
