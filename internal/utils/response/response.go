// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every response body is one of two envelopes:
//
//	{ "status": "ok", "data": ... }       on success
//	{ "detail": ... }                     on error
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// StatusOK is the status value of every success envelope.
const StatusOK = "ok"

// Response is the success envelope.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorResponse is the error envelope. Detail is a string for not-found
// and internal errors and a []FieldError for validation failures.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteJSON writes data JSON-encoded with the given HTTP status code.
// Header() → WriteHeader() → body writes, in that order.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// OK wraps data in the success envelope.
func OK(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Detail builds an error envelope from a message.
func Detail(format string, args ...any) ErrorResponse {
	return ErrorResponse{Detail: fmt.Sprintf(format, args...)}
}

// Invalid builds a validation envelope for a single field.
func Invalid(field, message string) ErrorResponse {
	return ErrorResponse{Detail: []FieldError{{Field: field, Message: message}}}
}

// ValidationError converts validator errors into one FieldError per
// failing field. Field names are whatever the validator reports, which
// is the JSON name when a tag name func is registered.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	fields := make([]FieldError, 0, len(errs))

	for _, e := range errs {
		var msg string
		switch e.ActualTag() {
		case "required":
			msg = fmt.Sprintf("field %s is required", e.Field())
		case "email":
			msg = fmt.Sprintf("field %s must be a valid email address", e.Field())
		case "len":
			msg = fmt.Sprintf("field %s must be exactly %s characters", e.Field(), e.Param())
		case "min":
			msg = fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param())
		case "max":
			msg = fmt.Sprintf("field %s must be at most %s", e.Field(), e.Param())
		default:
			msg = fmt.Sprintf("field %s is invalid", e.Field())
		}
		fields = append(fields, FieldError{Field: e.Field(), Message: msg})
	}

	return ErrorResponse{Detail: fields}
}
