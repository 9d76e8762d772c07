package helpers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator reports field errors under their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationCode turns the first failed rule into a code such as
// ACCOUNT_CODE_REQUIRED or AMOUNT_GT.
func ValidationCode(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "INVALID_REQUEST"
	}
	f := fields[0]
	return strings.ToUpper(f.Field() + "_" + f.Tag())
}
