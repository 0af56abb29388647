package httpx

import (
	"encoding/json"
	"net/http"
)

// FieldError points at one offending input field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response. Errors is always
// present, empty unless input validation failed.
type ErrorResponse struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// MessageResponse is returned by endpoints with nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, MessageResponse{Message: msg})
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, code int, msg string, fields ...FieldError) {
	if fields == nil {
		fields = []FieldError{}
	}
	WriteJSON(w, code, ErrorResponse{Message: msg, Errors: fields})
}

// NoCache marks the response as not storable. Every API response may carry
// tokens or user data.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON reads a JSON body of at most maxBytes into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
