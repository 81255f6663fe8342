// Package common provides shared utilities and types used across the application.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common application errors.
var (
	// ErrNotFound indicates the remote authority does not recognize the id.
	ErrNotFound = errors.New("not found")
	// ErrSessionExpired indicates the session is gone and cannot be refreshed.
	ErrSessionExpired = errors.New("session expired")
)

// AuthError indicates the remote authority rejected the caller's credentials.
type AuthError struct {
	Err    error
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "authentication failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError indicates input rejected either by local pre-validation
// or by the remote authority (a 422-class response).
type ValidationError struct {
	Err    error
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "validation failed"
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransportError indicates a network failure or a server fault.
type TransportError struct {
	Err        error
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server error (%d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExportError indicates a binary export request failed. It is always
// non-fatal: no cached state is affected by an export.
type ExportError struct {
	Err    error
	Format string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage extracts the human-readable reason from err, falling back to
// the given generic message when the remote authority supplied none.
func UserMessage(err error, fallback string) string {
	var uerr *UserError
	if errors.As(err, &uerr) && uerr.UserMessage != "" {
		return uerr.UserMessage
	}

	var verr *ValidationError
	if errors.As(err, &verr) && verr.Reason != "" {
		return verr.Reason
	}

	var aerr *AuthError
	if errors.As(err, &aerr) && aerr.Reason != "" {
		return aerr.Reason
	}

	if errors.Is(err, ErrSessionExpired) {
		return "Session expired, please log in again"
	}

	return fallback
}

// DetailFromBody extracts a human-readable rejection reason from an API
// error body. The backend returns either {"detail": "..."} or a map of
// field names to lists of messages; anything else yields "".
func DetailFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if raw, ok := payload["detail"]; ok {
		var detail string
		if err := json.Unmarshal(raw, &detail); err == nil {
			return detail
		}
	}

	// Flatten field errors deterministically.
	fields := make([]string, 0, len(payload))
	for field := range payload {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		var messages []string
		if err := json.Unmarshal(payload[field], &messages); err != nil {
			continue
		}
		if len(messages) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(messages, "; ")))
		}
	}

	return strings.Join(parts, "; ")
}
