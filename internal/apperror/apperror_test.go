package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("token expired"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("managers only"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("task", 42),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("task", 42),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrForbidden",
			err:       Unauthorized(""),
			target:    ErrForbidden,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		target  error
		wantMsg string
	}{
		{
			name:    "401 with error key",
			status:  401,
			body:    `{"error": "token expired"}`,
			target:  ErrUnauthorized,
			wantMsg: "token expired",
		},
		{
			name:    "401 with empty body uses default",
			status:  401,
			body:    ``,
			target:  ErrUnauthorized,
			wantMsg: "authentication required",
		},
		{
			name:    "403 with DRF detail key",
			status:  403,
			body:    `{"detail": "You do not have permission to perform this action."}`,
			target:  ErrForbidden,
			wantMsg: "You do not have permission to perform this action.",
		},
		{
			name:    "400 with field errors falls through to first field",
			status:  400,
			body:    `{"title": ["Title must be at least 3 characters long"]}`,
			target:  ErrValidation,
			wantMsg: "Title must be at least 3 characters long",
		},
		{
			name:    "500 with garbage body",
			status:  500,
			body:    `<html>Internal Server Error</html>`,
			target:  ErrServer,
			wantMsg: "the server could not process the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus(tt.status, []byte(tt.body))
			if !errors.Is(err, tt.target) {
				t.Errorf("FromStatus(%d) sentinel = %v, want %v", tt.status, err.Err, tt.target)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("FromStatus(%d) message = %q, want %q", tt.status, err.Message, tt.wantMsg)
			}
		})
	}
}

func TestFirstFieldError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "picks alphabetically first field",
			body: `{"username": ["Username already taken"], "email": ["Enter a valid email address"]}`,
			want: "Enter a valid email address",
		},
		{
			name: "skips empty message lists",
			body: `{"aaa": [], "email": ["Enter a valid email address"]}`,
			want: "Enter a valid email address",
		},
		{
			name: "accepts bare string values",
			body: `{"password": "This password is too short"}`,
			want: "This password is too short",
		},
		{
			name: "bare JSON string body returned as-is",
			body: `"Registration closed"`,
			want: "Registration closed",
		},
		{
			name: "unparseable body yields fallback",
			body: `not json`,
			want: "Registration failed",
		},
		{
			name: "empty object yields fallback",
			body: `{}`,
			want: "Registration failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstFieldError([]byte(tt.body), "Registration failed"); got != tt.want {
				t.Errorf("FirstFieldError() = %q, want %q", got, tt.want)
			}
		})
	}
}
