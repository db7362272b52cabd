package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"teamhub/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// ValidateStruct checks s against its validate tags and returns an
// apperr validation error keyed by JSON field name.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Wrap(apperr.KindValidation, err, "Validation failed")
	}

	fields := make(map[string][]string)
	for _, fe := range verrs {
		field := fe.Field()
		param := fe.Param()

		var msg string
		switch fe.Tag() {
		case "required":
			msg = "This field is required."
		case "min":
			msg = "Ensure this field has at least " + param + " characters."
		case "max":
			msg = "Ensure this field has no more than " + param + " characters."
		case "email":
			msg = "Enter a valid email address."
		case "oneof":
			msg = "Must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
		case "eqfield":
			// mismatched confirmation is reported against the password itself
			field = "password"
			msg = "Password fields didn't match."
		case "gt":
			msg = "Ensure this value is greater than " + param + "."
		default:
			msg = "This value is invalid."
		}
		fields[field] = append(fields[field], msg)
	}
	return apperr.Validation(fields)
}
