package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPClassification(t *testing.T) {
	cases := []struct {
		status int
		want   ErrorCategory
	}{
		{400, Irrecoverable},
		{401, Irrecoverable},
		{403, Irrecoverable},
		{404, Irrecoverable},
		{408, Recoverable},
		{429, Recoverable},
		{500, Recoverable},
		{503, Recoverable},
		{302, Irrecoverable},
	}
	for _, tc := range cases {
		err := NewHTTPError("search", tc.status, "body")
		assert.Equal(t, tc.want, err.Category, "status %d", tc.status)
		assert.Equal(t, tc.status, err.StatusCode)
		assert.Equal(t, "body", err.Body)
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNetworkError("fetch", fmt.Errorf("connection reset")))
	assert.True(t, IsRemoteError(err))
	assert.True(t, IsTransient(err))
	re, ok := AsRemoteError(err)
	assert.True(t, ok)
	assert.Equal(t, 0, re.StatusCode)
}

func TestAuthErrorsAreNeverTransient(t *testing.T) {
	err := NewAuthError(Unauthorized, "token rejected")
	assert.False(t, IsTransient(err))
	assert.True(t, err.Reauth)
	assert.True(t, IsAuthKind(fmt.Errorf("x: %w", err), Unauthorized))
	assert.False(t, IsAuthKind(err, ExpiredToken))
	assert.Equal(t, "UNAUTHORIZED", err.Kind.Code())
}

func TestSessionAndValidationPredicates(t *testing.T) {
	se := NewSessionError(SessionExpired, "u1")
	assert.True(t, IsSessionError(fmt.Errorf("resolve: %w", se)))
	assert.Equal(t, "SESSION_EXPIRED", se.Kind.Code())
	assert.Contains(t, se.Error(), "expired")

	ve := NewValidationError("limit", "must be between 1 and 50")
	assert.True(t, IsValidationError(fmt.Errorf("bind: %w", ve)))
	assert.False(t, IsValidationError(se))
}
