// Package validation configures the validator shared by the use case and
// delivery layers.
package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TagShortAlias validates a custom short code: letters, digits, '_' and '-'.
const TagShortAlias = "shortalias"

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// New returns a validator that reports json field names and knows the
// shortalias tag.
func New() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty or reserved tag name.
	_ = validate.RegisterValidation(TagShortAlias, func(fl validator.FieldLevel) bool {
		return aliasPattern.MatchString(fl.Field().String())
	})

	return validate
}
