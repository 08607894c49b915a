package middleware

import (
	"context"
	"net/http"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors logs handler errors once and turns them into JSON responses. Errors
// without a weberr response become a 500 with no detail.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := logrus.Fields{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			body, code, ok := weberr.Response(err)
			if ok && code < http.StatusInternalServerError {
				log.WithFields(fields).Warn("ERROR")
				return web.Respond(ctx, w, body, code)
			}

			log.WithFields(fields).Error("ERROR")
			if ok {
				return web.Respond(ctx, w, body, code)
			}

			er := weberr.ErrorResponse{
				Error: http.StatusText(http.StatusInternalServerError),
			}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}
