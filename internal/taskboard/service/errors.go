package service

import (
	"errors"
	"strings"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrTokenExpired       = errors.New("refresh token expired")
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Path    string
	Message string
}

// ValidationError carries every problem found in an input, in field order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Path+": "+f.Message)
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(path, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Path: path, Message: message}}}
}
