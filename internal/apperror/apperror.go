// Package apperror defines the error taxonomy shared across the client.
//
// Every error that crosses a package boundary is either a sentinel from this
// package (matched with errors.Is) or an *AppError wrapping one. Handlers of
// these errors never string-match messages; they branch on the sentinel.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnauthorized is a 401 from the API: the access token is missing,
	// expired, or revoked. The request pipeline recovers from this once per
	// request via the refresh protocol before letting it escape.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is a 403: authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is a 404 for a specific resource.
	ErrNotFound = errors.New("not found")

	// ErrValidation is a 400 carrying field-level validation messages.
	ErrValidation = errors.New("validation failed")

	// ErrServer is any 5xx; the caller can only retry or report.
	ErrServer = errors.New("server error")
)

// AppError attaches a human-readable message (and optionally the offending
// field) to one of the sentinel errors above.
type AppError struct {
	Err     error  // sentinel, reachable via errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Unauthorized returns an AppError for a 401 response.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{Err: ErrUnauthorized, Message: message}
}

// Forbidden returns an AppError for a 403 response.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "permission denied"
	}
	return &AppError{Err: ErrForbidden, Message: message}
}

// NotFound returns an AppError for a missing resource.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

// ValidationFailed returns an AppError for a single invalid field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

// Server returns an AppError for a 5xx response.
func Server(message string) *AppError {
	if message == "" {
		message = "the server could not process the request"
	}
	return &AppError{Err: ErrServer, Message: message}
}

// FromStatus maps an HTTP status code and response body to an AppError.
// Bodies are expected in the API's error envelope ({"error": ..., "message":
// ..., "detail": ...} in various combinations); anything unparseable falls
// back to a generic message for that status class.
func FromStatus(status int, body []byte) *AppError {
	msg := extractMessage(body)
	switch {
	case status == 401:
		return Unauthorized(msg)
	case status == 403:
		return Forbidden(msg)
	case status == 404:
		if msg == "" {
			msg = "resource not found"
		}
		return &AppError{Err: ErrNotFound, Message: msg}
	case status == 400:
		if msg == "" {
			msg = FirstFieldError(body, "request validation failed")
		}
		return &AppError{Err: ErrValidation, Message: msg}
	case status >= 500:
		return Server(msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", status)
		}
		return &AppError{Err: ErrServer, Message: msg}
	}
}

// extractMessage pulls a top-level message out of a JSON error body.
// The API is not consistent about the key ("error", "message", or DRF's
// "detail"), so all three are tried in that order.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"error", "message", "detail"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// FirstFieldError extracts a single field-level message from a validation
// error payload of the shape {"field": ["msg", ...], ...} or
// {"field": "msg", ...}.
//
// DETERMINISM:
// The server's JSON object has no ordering guarantee, so "first" is defined
// as the first non-empty message when field names are sorted. The same
// payload always surfaces the same message, no matter how the map iterates.
//
// A bare JSON string body is returned as-is; anything else yields fallback.
func FirstFieldError(body []byte, fallback string) string {
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil && asString != "" {
		return asString
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		switch v := payload[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return fallback
}
