// Package device gives typed access to the per-device state kept in
// storage.Storage: display preferences, UI language, the bearer token, the
// wishlist and lesson progress.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/dunetube/dunetube/i18n"
	"github.com/dunetube/dunetube/storage"
)

const (
	KeyPreferences = "dunetube.preferences"
	KeyLanguage    = "dunetube.language"
	KeyToken       = "dunetube.token"
	KeyWishlist    = "dunetube.wishlist"
	KeyProgress    = "dunetube.progress"
)

type Preferences struct {
	Currency  string `json:"currency" validate:"required,len=3"`
	DateStyle string `json:"dateStyle" validate:"required,oneof=short medium long"`
}

var DefaultPreferences = Preferences{Currency: "USD", DateStyle: "medium"}

type Device struct {
	kv storage.Storage
}

func New(kv storage.Storage) *Device {
	return &Device{kv: kv}
}

func (d *Device) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := d.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (d *Device) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return d.kv.Set(ctx, key, string(b))
}

func (d *Device) Preferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences
	if _, err := d.getJSON(ctx, KeyPreferences, &p); err != nil {
		return DefaultPreferences, err
	}
	return p, nil
}

func (d *Device) SetPreferences(ctx context.Context, p Preferences) error {
	return d.setJSON(ctx, KeyPreferences, p)
}

// Language returns the stored UI language, or the default when none is
// stored or the stored one is not supported.
func (d *Device) Language(ctx context.Context) (string, error) {
	lang, ok, err := d.kv.Get(ctx, KeyLanguage)
	if err != nil {
		return i18n.DefaultLanguage, err
	}
	if !ok || !slices.Contains(i18n.Languages(), lang) {
		return i18n.DefaultLanguage, nil
	}
	return lang, nil
}

func (d *Device) SetLanguage(ctx context.Context, lang string) error {
	if !slices.Contains(i18n.Languages(), lang) {
		return fmt.Errorf("unsupported language %q", lang)
	}
	return d.kv.Set(ctx, KeyLanguage, lang)
}

// Token implements remote.TokenSource.
func (d *Device) Token(ctx context.Context) (string, bool, error) {
	tok, ok, err := d.kv.Get(ctx, KeyToken)
	if err != nil {
		return "", false, err
	}
	return tok, ok && tok != "", nil
}

func (d *Device) SetToken(ctx context.Context, token string) error {
	return d.kv.Set(ctx, KeyToken, token)
}

func (d *Device) ClearToken(ctx context.Context) error {
	return d.kv.Delete(ctx, KeyToken)
}

func (d *Device) Wishlist(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := d.getJSON(ctx, KeyWishlist, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// AddToWishlist prepends courseID unless it is already listed.
func (d *Device) AddToWishlist(ctx context.Context, courseID string) ([]string, error) {
	ids, err := d.Wishlist(ctx)
	if err != nil {
		return nil, err
	}
	if slices.Contains(ids, courseID) {
		return ids, nil
	}
	ids = append([]string{courseID}, ids...)
	return ids, d.setJSON(ctx, KeyWishlist, ids)
}

func (d *Device) RemoveFromWishlist(ctx context.Context, courseID string) ([]string, error) {
	ids, err := d.Wishlist(ctx)
	if err != nil {
		return nil, err
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == courseID })
	return ids, d.setJSON(ctx, KeyWishlist, ids)
}

func (d *Device) progress(ctx context.Context) (map[string]int, error) {
	var m map[string]int
	if _, err := d.getJSON(ctx, KeyProgress, &m); err != nil {
		return nil, err
	}
	// A stored JSON null decodes to a nil map.
	if m == nil {
		m = map[string]int{}
	}
	return m, nil
}

// LessonProgress is the watched percentage of a lesson, 0 when unknown.
func (d *Device) LessonProgress(ctx context.Context, lessonID string) (int, error) {
	m, err := d.progress(ctx)
	if err != nil {
		return 0, err
	}
	return m[lessonID], nil
}

// SetLessonProgress stores percent clamped to [0, 100] and returns the
// stored value.
func (d *Device) SetLessonProgress(ctx context.Context, lessonID string, percent int) (int, error) {
	m, err := d.progress(ctx)
	if err != nil {
		return 0, err
	}
	percent = min(max(percent, 0), 100)
	m[lessonID] = percent
	return percent, d.setJSON(ctx, KeyProgress, m)
}
