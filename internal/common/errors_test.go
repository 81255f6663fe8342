package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		name     string
		fallback string
		want     string
	}{
		{
			name:     "user error message wins",
			err:      NewUserError("Failed to add transaction", errors.New("boom")),
			fallback: "generic",
			want:     "Failed to add transaction",
		},
		{
			name:     "validation reason surfaces",
			err:      &ValidationError{Reason: "title is required"},
			fallback: "generic",
			want:     "title is required",
		},
		{
			name:     "auth reason surfaces",
			err:      &AuthError{Reason: "Invalid credentials"},
			fallback: "generic",
			want:     "Invalid credentials",
		},
		{
			name:     "wrapped session expiry",
			err:      fmt.Errorf("refresh rejected: %w", ErrSessionExpired),
			fallback: "generic",
			want:     "Session expired, please log in again",
		},
		{
			name:     "anonymous error falls back",
			err:      errors.New("connection refused"),
			fallback: "Failed to load dashboard data",
			want:     "Failed to load dashboard data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err, tt.fallback))
		})
	}
}

func TestDetailFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "detail field",
			body: `{"detail": "Token is invalid or expired"}`,
			want: "Token is invalid or expired",
		},
		{
			name: "field errors flattened in order",
			body: `{"username": ["Required."], "email": ["Invalid.", "Too long."]}`,
			want: "email: Invalid.; Too long.; username: Required.",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
		{
			name: "non-json body",
			body: "<html>502</html>",
			want: "",
		},
		{
			name: "unrecognized shape",
			body: `{"code": 42}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetailFromBody([]byte(tt.body)))
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	inner := fmt.Errorf("transaction 9: %w", ErrNotFound)
	wrapped := NewUserError("Failed to delete transaction", inner)

	assert.ErrorIs(t, wrapped, ErrNotFound)

	var uerr *UserError
	assert.ErrorAs(t, wrapped, &uerr)
	assert.Equal(t, "Failed to delete transaction", uerr.UserMessage)
}
