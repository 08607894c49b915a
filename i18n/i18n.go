// Package i18n holds the few generic user-facing messages the services
// return: fetch failures, empty results and missing resources.
package i18n

import (
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/id"
	ut "github.com/go-playground/universal-translator"
)

const (
	MsgGenericError = "error.generic"
	MsgNotFound     = "error.not_found"
	MsgEmpty        = "catalog.empty"
	MsgAuthRequired = "studio.auth_required"
	MsgReload       = "studio.reload"
)

const DefaultLanguage = "en"

var catalog = map[string]map[string]string{
	"en": {
		MsgGenericError: "Something went wrong. Please try again.",
		MsgNotFound:     "We couldn't find what you were looking for.",
		MsgEmpty:        "No courses match your search.",
		MsgAuthRequired: "Sign in to use the studio.",
		MsgReload:       "This course changed somewhere else. Reload and try again.",
	},
	"id": {
		MsgGenericError: "Terjadi kesalahan. Silakan coba lagi.",
		MsgNotFound:     "Kami tidak dapat menemukan yang Anda cari.",
		MsgEmpty:        "Tidak ada kursus yang cocok dengan pencarian Anda.",
		MsgAuthRequired: "Masuk untuk menggunakan studio.",
		MsgReload:       "Kursus ini telah diubah di tempat lain. Muat ulang dan coba lagi.",
	},
}

var universal *ut.UniversalTranslator

func init() {
	universal = ut.New(en.New(), en.New(), id.New())

	for lang, msgs := range catalog {
		trans, _ := universal.GetTranslator(lang)
		for key, text := range msgs {
			if err := trans.Add(key, text, false); err != nil {
				panic(err)
			}
		}
	}
}

// Translator returns the translator for lang, falling back to English.
func Translator(lang string) ut.Translator {
	trans, found := universal.GetTranslator(lang)
	if !found {
		trans, _ = universal.GetTranslator(DefaultLanguage)
	}
	return trans
}

func Message(lang string, key string) string {
	msg, err := Translator(lang).T(key)
	if err != nil {
		return key
	}
	return msg
}

// Languages lists the supported language codes.
func Languages() []string {
	out := make([]string, 0, len(catalog))
	for lang := range catalog {
		out = append(out, lang)
	}
	return out
}
