package errors

import (
	stderrors "errors"
	"fmt"
)

// AuthErrorKind enumerates the ways authentication can fail.
type AuthErrorKind int

const (
	ConfigMissing AuthErrorKind = iota
	ExpiredToken
	InvalidToken
	ExchangeFailed
	Unauthorized
	ReauthRequired
	TokenInvalid
)

var authKindNames = map[AuthErrorKind]string{
	ConfigMissing:  "ConfigMissing",
	ExpiredToken:   "ExpiredToken",
	InvalidToken:   "InvalidToken",
	ExchangeFailed: "ExchangeFailed",
	Unauthorized:   "Unauthorized",
	ReauthRequired: "ReauthRequired",
	TokenInvalid:   "TokenInvalid",
}

var authKindCodes = map[AuthErrorKind]string{
	ConfigMissing:  "AUTH_CONFIG_MISSING",
	ExpiredToken:   "TOKEN_EXPIRED",
	InvalidToken:   "TOKEN_INVALID",
	ExchangeFailed: "TOKEN_EXCHANGE_FAILED",
	Unauthorized:   "UNAUTHORIZED",
	ReauthRequired: "REAUTH_REQUIRED",
	TokenInvalid:   "OPAQUE_TOKEN_INVALID",
}

func (k AuthErrorKind) String() string {
	if n, ok := authKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("AuthErrorKind(%d)", int(k))
}

// Code is the stable identifier reported to MCP clients.
func (k AuthErrorKind) Code() string {
	if c, ok := authKindCodes[k]; ok {
		return c
	}
	return "AUTH_ERROR"
}

// AuthError is returned whenever a caller's identity cannot be established
// or is no longer accepted by the remote store.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	// Reauth is always true today; every auth failure requires the caller
	// to authenticate again.
	Reauth     bool
	Underlying error
}

func (e *AuthError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("auth %s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Underlying }

// NewAuthError constructs an AuthError with the reauth flag set.
func NewAuthError(kind AuthErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message, Reauth: true}
}

// WrapAuthError is NewAuthError carrying the error that caused it.
func WrapAuthError(kind AuthErrorKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Reauth: true, Underlying: err}
}

// IsAuthError checks if an error is an AuthError (including wrapped errors).
func IsAuthError(err error) bool {
	var ae *AuthError
	return stderrors.As(err, &ae)
}

// AsAuthError extracts the AuthError from err's chain.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsAuthKind reports whether err is an AuthError of the given kind.
func IsAuthKind(err error, kind AuthErrorKind) bool {
	ae, ok := AsAuthError(err)
	return ok && ae.Kind == kind
}
