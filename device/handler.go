package device

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/validate"
)

type LanguageUp struct {
	Language string `json:"language" validate:"required"`
}

type TokenUp struct {
	Token string `json:"token" validate:"required"`
}

type ProgressUp struct {
	Percent *int `json:"percent" validate:"required"`
}

type ProgressView struct {
	LessonID string `json:"lessonId"`
	Percent  int    `json:"percent"`
}

func HandleShowPreferences(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := d.Preferences(ctx)
		if err != nil {
			return fmt.Errorf("reading preferences: %w", err)
		}
		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleUpdatePreferences(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var p Preferences
		if err := web.Decode(w, r, &p); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(p, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		if err := d.SetPreferences(ctx, p); err != nil {
			return fmt.Errorf("storing preferences: %w", err)
		}
		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleShowLanguage(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lang, err := d.Language(ctx)
		if err != nil {
			return fmt.Errorf("reading language: %w", err)
		}
		return web.Respond(ctx, w, LanguageUp{Language: lang}, http.StatusOK)
	}
}

func HandleUpdateLanguage(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var lu LanguageUp
		if err := web.Decode(w, r, &lu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(lu, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		if err := d.SetLanguage(ctx, lu.Language); err != nil {
			return weberr.Invalid(err)
		}
		return web.Respond(ctx, w, lu, http.StatusOK)
	}
}

func HandleUpdateToken(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var tu TokenUp
		if err := web.Decode(w, r, &tu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(tu, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		if err := d.SetToken(ctx, tu.Token); err != nil {
			return fmt.Errorf("storing token: %w", err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDeleteToken(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := d.ClearToken(ctx); err != nil {
			return fmt.Errorf("clearing token: %w", err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleShowWishlist(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ids, err := d.Wishlist(ctx)
		if err != nil {
			return fmt.Errorf("reading wishlist: %w", err)
		}
		return web.Respond(ctx, w, ids, http.StatusOK)
	}
}

func HandleAddToWishlist(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ids, err := d.AddToWishlist(ctx, web.Param(r, "course_id"))
		if err != nil {
			return fmt.Errorf("adding to wishlist: %w", err)
		}
		return web.Respond(ctx, w, ids, http.StatusOK)
	}
}

func HandleRemoveFromWishlist(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ids, err := d.RemoveFromWishlist(ctx, web.Param(r, "course_id"))
		if err != nil {
			return fmt.Errorf("removing from wishlist: %w", err)
		}
		return web.Respond(ctx, w, ids, http.StatusOK)
	}
}

func HandleShowProgress(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lid := web.Param(r, "lesson_id")

		pct, err := d.LessonProgress(ctx, lid)
		if err != nil {
			return fmt.Errorf("reading progress of lesson[%s]: %w", lid, err)
		}
		return web.Respond(ctx, w, ProgressView{LessonID: lid, Percent: pct}, http.StatusOK)
	}
}

func HandleUpdateProgress(d *Device) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		lid := web.Param(r, "lesson_id")

		var pu ProgressUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.CheckLang(pu, web.Language(r)); err != nil {
			return weberr.Invalid(fmt.Errorf("validating data: %w", err))
		}

		pct, err := d.SetLessonProgress(ctx, lid, *pu.Percent)
		if err != nil {
			return fmt.Errorf("storing progress of lesson[%s]: %w", lid, err)
		}
		return web.Respond(ctx, w, ProgressView{LessonID: lid, Percent: pct}, http.StatusOK)
	}
}
