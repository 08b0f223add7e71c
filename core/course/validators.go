package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edukanda/edukanda/core"
)

var (
	categoryTag  = "category"
	categoryText = "unknown category"

	levelTag  = "level"
	levelText = "level must be one of beginner, intermediate or advanced"
	levels    = []string{"beginner", "intermediate", "advanced"}

	lessonDurationTag  = "lessonduration"
	lessonDurationText = "duration must be written as mm:ss or h:mm:ss"
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return IsValidCategory(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	_ = validate.RegisterValidation(levelTag, func(fl validator.FieldLevel) bool {
		for _, l := range levels {
			if l == fl.Field().String() {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)

	_ = validate.RegisterValidation(lessonDurationTag, func(fl validator.FieldLevel) bool {
		_, err := ParseDuration(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, lessonDurationTag, lessonDurationText)
}
