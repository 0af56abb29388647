package tasksdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is returned once a refresh has failed. The session
	// stays unusable until the next Login.
	ErrSessionExpired = errors.New("tasksdk: session expired")

	// ErrNoSession is returned by a session that holds no tokens, either
	// before Login or after Logout.
	ErrNoSession = errors.New("tasksdk: not logged in")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []FieldError
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("tasksdk: %d %s", e.StatusCode, e.Message)
	}
	fields := make([]string, 0, len(e.Errors))
	for _, f := range e.Errors {
		fields = append(fields, f.Path+": "+f.Message)
	}
	return fmt.Sprintf("tasksdk: %d %s (%s)", e.StatusCode, e.Message, strings.Join(fields, "; "))
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// parseErrorResponse builds an *APIError from a non-2xx response body,
// falling back to the status text when the body is not an ErrorResponse.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Message,
			Errors:     errResp.Errors,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
}
