package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// messages maps "field.tag" to the text shown to clients.
var messages = map[string]string{
	"name.required":     "Name is required",
	"name.max":          "Name must be at most 100 characters",
	"email.required":    "Email is required",
	"email.email":       "Invalid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"password.max":      "Password must be at most 128 characters",
	"title.required":    "Title is required",
	"title.min":         "Title is required",
	"title.max":         "Title must be at most 200 characters",
	"status.oneof":      "Status must be PENDING or COMPLETED",
	"page.min":          "Page must be a positive integer",
	"limit.min":         "Limit must be a positive integer",
}

// check validates in and converts failures into a *ValidationError.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		out.Fields = append(out.Fields, FieldError{Path: fe.Field(), Message: msg})
	}
	return out
}
