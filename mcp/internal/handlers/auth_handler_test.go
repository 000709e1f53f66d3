package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
)

func TestAuthenticateDispatch(t *testing.T) {
	cases := []struct {
		name       string
		args       map[string]any
		wantMethod string
		wantSecret string
	}{
		{"jwt", map[string]any{"jwt_token": " tok "}, "jwt", "tok"},
		{"access token", map[string]any{"access_token": "bearer"}, "opaque", "bearer"},
		{"oauth_token username", map[string]any{"username": "oauth_token", "password": "bearer"}, "opaque", "bearer"},
		{"credentials", map[string]any{"username": "jane", "password": "pw"}, "credentials", "jane:pw"},
		{"jwt wins over credentials", map[string]any{"jwt_token": "tok", "username": "jane", "password": "pw"}, "jwt", "tok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fa := newFakeAuth()
			h := guard("authenticate", NewAuthHandler(fa).handleAuthenticate)

			res, err := h(context.Background(), callRequest(tc.args))
			require.NoError(t, err)
			require.False(t, res.IsError, textOf(t, res))

			out := decode(t, res)
			assert.Equal(t, true, out["success"])
			assert.Equal(t, "u1", out["user_id"])
			assert.Equal(t, tc.wantMethod, fa.lastMethod)
			assert.Equal(t, tc.wantSecret, fa.lastSecret)
		})
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	h := guard("authenticate", NewAuthHandler(newFakeAuth()).handleAuthenticate)

	res, err := h(context.Background(), callRequest(map[string]any{"username": "jane"}))
	require.NoError(t, err)
	p := decodeError(t, res)
	assert.Equal(t, "VALIDATION_ERROR", p.Code)
	assert.Equal(t, "credentials", p.Field)
	assert.NotEmpty(t, p.RequestID)
}

func TestAuthenticateFailureCarriesReauth(t *testing.T) {
	fa := newFakeAuth()
	fa.err = kberrors.NewAuthError(kberrors.ExpiredToken, "Token has expired")
	h := guard("authenticate", NewAuthHandler(fa).handleAuthenticate)

	res, err := h(context.Background(), callRequest(map[string]any{"jwt_token": "old"}))
	require.NoError(t, err)
	p := decodeError(t, res)
	assert.Equal(t, "TOKEN_EXPIRED", p.Code)
	assert.True(t, p.RequiresReauth)
	assert.Equal(t, "Token has expired", p.Message)
}

func TestGetSession(t *testing.T) {
	fa := newFakeAuth()
	ah := NewAuthHandler(fa)
	h := guard("get-session", ah.handleGetSession)

	res, err := h(context.Background(), callRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	assert.Equal(t, false, decode(t, res)["authenticated"])

	_, err = fa.AuthenticateWithToken(context.Background(), "tok")
	require.NoError(t, err)

	res, err = h(context.Background(), callRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	out := decode(t, res)
	assert.Equal(t, true, out["authenticated"])
	assert.Equal(t, false, out["is_expired"])
	assert.Equal(t, "jane", out["username"])
	assert.Equal(t, "jwt", out["auth_method"])
	assert.NotContains(t, textOf(t, res), "tok\"")
}

func TestGetSessionRefresh(t *testing.T) {
	fa := newFakeAuth()
	_, err := fa.AuthenticateWithToken(context.Background(), "tok")
	require.NoError(t, err)
	h := guard("get-session", NewAuthHandler(fa).handleGetSession)

	res, err := h(context.Background(), callRequest(map[string]any{"user_id": "u1", "refresh": "true"}))
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, res)["authenticated"])

	fa.refreshErr = kberrors.NewAuthError(kberrors.ReauthRequired, "Session is about to expire; please authenticate again")
	res, err = h(context.Background(), callRequest(map[string]any{"user_id": "u1", "refresh": true}))
	require.NoError(t, err)
	p := decodeError(t, res)
	assert.Equal(t, "REAUTH_REQUIRED", p.Code)
	assert.True(t, p.RequiresReauth)
}

func TestSessionToolsRequireUserID(t *testing.T) {
	ah := NewAuthHandler(newFakeAuth())
	for name, fn := range map[string]toolFunc{
		"get-session":   ah.handleGetSession,
		"clear-session": ah.handleClearSession,
	} {
		res, err := guard(name, fn)(context.Background(), callRequest(map[string]any{"user_id": "  "}))
		require.NoError(t, err)
		p := decodeError(t, res)
		assert.Equal(t, "VALIDATION_ERROR", p.Code, name)
		assert.Equal(t, "user_id", p.Field, name)
	}
}

func TestClearSession(t *testing.T) {
	fa := newFakeAuth()
	_, err := fa.AuthenticateWithToken(context.Background(), "tok")
	require.NoError(t, err)
	h := guard("clear-session", NewAuthHandler(fa).handleClearSession)

	res, err := h(context.Background(), callRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, res)["success"])

	res, err = h(context.Background(), callRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	out := decode(t, res)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "No session found.", out["message"])
}
