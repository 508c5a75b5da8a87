// Package shared holds response helpers common to all HTTP handlers.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "verigrant/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for all error replies.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the envelope.
// Unrecognized errors are reported as 500 without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := "internal server error"
	if code != dErrors.CodeInternal {
		message = err.Error()
	}
	WriteJSON(w, dErrors.HTTPStatus(err), ErrorResponse{
		Error:            string(code),
		ErrorDescription: message,
	})
}
