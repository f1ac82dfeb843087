package util

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// APIError represents a structured error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the top-level error envelope.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a structured error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: APIError{Code: code, Message: message},
	})
}

// ParseLimit extracts the limit query parameter with default and max bounds.
func ParseLimit(r *http.Request, defaultLimit, maxLimit int) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// ParseBoolPtr extracts an optional tri-state boolean query parameter.
// Absent means unconstrained (nil); anything other than a bool literal
// reports ok=false.
func ParseBoolPtr(r *http.Request, name string) (val *bool, ok bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, false
	}
	return &b, true
}
