package validate

import (
	"errors"

	"github.com/dunetube/dunetube/i18n"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	id_translations "github.com/go-playground/validator/v10/translations/id"
	"github.com/google/uuid"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	en_translations.RegisterDefaultTranslations(validate, i18n.Translator("en"))
	id_translations.RegisterDefaultTranslations(validate, i18n.Translator("id"))
}

// Check validates val and reports the first failure in English.
func Check(val any) error {
	return CheckLang(val, i18n.DefaultLanguage)
}

// CheckLang validates val and reports the first failure in lang.
func CheckLang(val any, lang string) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		return errors.New(verrors[0].Translate(i18n.Translator(lang)))
	}

	return nil
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}
