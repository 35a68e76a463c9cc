package handlers

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"smartid-server-go/models"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	return v
}

// fieldErrors turns validation errors into a field -> message map.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "required_if":
		return "This field is required for this role"
	case "email":
		return "Email is invalid"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "eqfield":
		return "Must match " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "role":
		return "Unknown role"
	case "eq":
		return "Must be " + fe.Param()
	}
	return "Invalid value"
}
