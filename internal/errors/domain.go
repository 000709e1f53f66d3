package errors

import (
	stderrors "errors"
	"fmt"
)

// SessionErrorKind distinguishes a missing session from an expired one.
type SessionErrorKind int

const (
	SessionNotFound SessionErrorKind = iota
	SessionExpired
)

func (k SessionErrorKind) String() string {
	if k == SessionExpired {
		return "Expired"
	}
	return "NotFound"
}

// Code is the stable identifier reported to MCP clients.
func (k SessionErrorKind) Code() string {
	if k == SessionExpired {
		return "SESSION_EXPIRED"
	}
	return "SESSION_NOT_FOUND"
}

// SessionError is returned when a user id has no usable session.
type SessionError struct {
	Kind   SessionErrorKind
	UserID string
}

func (e *SessionError) Error() string {
	switch e.Kind {
	case SessionExpired:
		return fmt.Sprintf("session for user %q has expired", e.UserID)
	default:
		return fmt.Sprintf("no session for user %q", e.UserID)
	}
}

// NewSessionError creates a new session error.
func NewSessionError(kind SessionErrorKind, userID string) *SessionError {
	return &SessionError{Kind: kind, UserID: userID}
}

// IsSessionError checks if an error is a SessionError (including wrapped errors).
func IsSessionError(err error) bool {
	var se *SessionError
	return stderrors.As(err, &se)
}

// AsSessionError extracts the SessionError from err's chain.
func AsSessionError(err error) (*SessionError, bool) {
	var se *SessionError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ValidationError represents malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	var validationErr ValidationError
	return stderrors.As(err, &validationErr)
}
