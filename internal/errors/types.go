// Package errors defines the error taxonomy shared by the authentication
// manager, the knowledge client and the MCP tool boundary. Remote failures
// are classified so the retry policy can tell transient faults from
// permanent ones.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory determines how errors should be handled by retry logic.
type ErrorCategory int

const (
	// Recoverable errors may be retried with exponential backoff.
	// Examples: 500 Internal Server Error, 429, network timeouts.
	Recoverable ErrorCategory = iota

	// Irrecoverable errors fail immediately without retry.
	// Examples: 400 Bad Request, 403 Forbidden, 404 Not Found.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// RemoteError reports a failed call to the knowledge store. StatusCode is 0
// when the request never produced an HTTP response.
type RemoteError struct {
	Operation  string
	Category   ErrorCategory
	StatusCode int
	Body       string
	Underlying error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: [%s] HTTP %d: %v", e.Operation, e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s: [%s] %v", e.Operation, e.Category, e.Underlying)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *RemoteError) Unwrap() error {
	return e.Underlying
}

// Transient reports whether the failure is worth retrying.
func (e *RemoteError) Transient() bool {
	return e.Category == Recoverable
}

// IsRemoteError checks whether err (or anything it wraps) is a RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return stderrors.As(err, &re)
}

// AsRemoteError extracts the RemoteError from err's chain.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsTransient returns true only for recoverable RemoteErrors. Auth, session
// and validation errors are never transient.
func IsTransient(err error) bool {
	if IsAuthError(err) {
		return false
	}
	if re, ok := AsRemoteError(err); ok {
		return re.Transient()
	}
	return false
}
