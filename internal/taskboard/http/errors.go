package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

var (
	errMalformedBody = errors.New("malformed request body")
	errBodyTooLarge  = errors.New("request body too large")
)

// errorWriter is the one place service errors become HTTP responses.
type errorWriter struct {
	// Production hides the text of unexpected errors from clients.
	Production bool
}

func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]httpx.FieldError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, httpx.FieldError{Path: f.Path, Message: f.Message})
		}
		httpx.WriteError(w, http.StatusBadRequest, "Validation error", fields...)
	case errors.Is(err, errMalformedBody):
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON in request body")
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, service.ErrTokenExpired):
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token expired")
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, "User not found")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		msg := "Internal server error"
		if !e.Production {
			msg = err.Error()
		}
		httpx.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched
// so that validation reports the missing fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	err := httpx.DecodeJSON(w, r, dst, maxBodyBytes)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &tooLarge):
		return errBodyTooLarge
	default:
		return errMalformedBody
	}
}
