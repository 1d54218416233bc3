// Package httpjson holds the JSON request/response helpers shared by the HTTP handlers.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the error payload every handler returns.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes an ErrorBody with the given status.
func Error(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorBody{Message: message, Code: code})
}

// BadRequest writes a 400 with code "invalid_argument".
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "invalid_argument", message)
}

// Internal writes a generic 500 without leaking err.
func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal", "internal server error")
}

// Decode reads a JSON body into v, capped at 1 MiB. An empty body is an error.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
