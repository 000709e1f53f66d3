package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

// fakeInstance serves the token, profile, role and probe endpoints.
func fakeInstance(t *testing.T, rolesStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case tokenPath:
			assert.NoError(t, r.ParseForm())
			if r.PostForm.Get("grant_type") != "password" || r.PostForm.Get("password") != "correct" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"access_denied"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"bearer-abc","expires_in":1800}`))
		case profilePath:
			if r.Header.Get("Authorization") != "Bearer bearer-abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"result":{"sys_id":"sn-user-1","user_name":"jane.doe"}}`))
		case rolesPath:
			if rolesStatus != http.StatusOK {
				w.WriteHeader(rolesStatus)
				return
			}
			assert.Equal(t, "user=sn-user-1", r.URL.Query().Get("sysparm_query"))
			_, _ = w.Write([]byte(`{"result":[{"role.name":"itil"},{"role":{"name":"knowledge"}},{"role.name":""}]}`))
		case probePath:
			if r.Header.Get("Authorization") != "Bearer good-opaque" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "1", r.URL.Query().Get("sysparm_limit"))
			_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestAuthenticateWithCredentials(t *testing.T) {
	srv := fakeInstance(t, http.StatusOK)
	defer srv.Close()

	now := testNow
	m, store := newTestManager(srv.URL, &now)

	sess, err := m.AuthenticateWithCredentials(context.Background(), "jane.doe", "correct")
	require.NoError(t, err)

	assert.Equal(t, "sn-user-1", sess.UserID)
	assert.Equal(t, "jane.doe", sess.Username)
	assert.Equal(t, []string{"itil", "knowledge"}, sess.Roles)
	assert.Equal(t, "bearer-abc", sess.Token)
	assert.Equal(t, session.AuthMethodOAuth, sess.AuthMethod)
	assert.True(t, sess.ExpiresAt.Equal(now.Add(30*time.Minute)))
	assert.Equal(t, 1, store.Len())
}

func TestAuthenticateWithCredentialsRoleFallback(t *testing.T) {
	srv := fakeInstance(t, http.StatusForbidden)
	defer srv.Close()

	now := testNow
	m, _ := newTestManager(srv.URL, &now)

	sess, err := m.AuthenticateWithCredentials(context.Background(), "jane.doe", "correct")
	require.NoError(t, err)
	assert.Equal(t, []string{"knowledge"}, sess.Roles)
}

func TestAuthenticateWithCredentialsRejected(t *testing.T) {
	srv := fakeInstance(t, http.StatusOK)
	defer srv.Close()

	now := testNow
	m, store := newTestManager(srv.URL, &now)

	_, err := m.AuthenticateWithCredentials(context.Background(), "jane.doe", "wrong")
	ae, ok := kberrors.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, kberrors.ExchangeFailed, ae.Kind)
	assert.True(t, ae.Reauth)
	assert.Equal(t, 0, store.Len())
}

func TestAuthenticateWithCredentialsNoClientPair(t *testing.T) {
	now := testNow
	m, _ := newTestManager("https://test.service-now.com", &now)
	m.cfg.ClientSecret = ""

	_, err := m.AuthenticateWithCredentials(context.Background(), "u", "p")
	assert.True(t, kberrors.IsAuthKind(err, kberrors.ConfigMissing))
}

func TestAuthenticateWithOpaqueToken(t *testing.T) {
	srv := fakeInstance(t, http.StatusOK)
	defer srv.Close()

	now := testNow
	m, _ := newTestManager(srv.URL, &now)

	sess, err := m.AuthenticateWithOpaqueToken(context.Background(), "good-opaque")
	require.NoError(t, err)
	assert.Equal(t, ServiceUserID, sess.UserID)
	assert.Equal(t, ServiceUsername, sess.Username)
	assert.Equal(t, []string{"mcp_user", "knowledge"}, sess.Roles)
	assert.True(t, sess.ExpiresAt.Equal(now.Add(30*time.Minute)))

	_, err = m.AuthenticateWithOpaqueToken(context.Background(), "bad-opaque")
	assert.True(t, kberrors.IsAuthKind(err, kberrors.TokenInvalid))
}

func TestResolveSession(t *testing.T) {
	now := testNow
	m, _ := newTestManager("https://test.service-now.com", &now)

	_, err := m.ResolveSession("nobody")
	se, ok := kberrors.AsSessionError(err)
	require.True(t, ok)
	assert.Equal(t, kberrors.SessionNotFound, se.Kind)

	tok := mustToken(testSecret, "u1", "user", []string{"employee"}, now, time.Minute)
	_, err = m.AuthenticateWithToken(context.Background(), tok)
	require.NoError(t, err)

	_, err = m.ResolveSession("u1")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.ResolveSession("u1")
	se, ok = kberrors.AsSessionError(err)
	require.True(t, ok)
	assert.Equal(t, kberrors.SessionExpired, se.Kind)

	// Resolution does not remove the session; only clear and sweep do.
	_, ok = m.GetSession("u1")
	assert.True(t, ok)
	assert.Equal(t, 1, m.SweepExpired())
	_, ok = m.GetSession("u1")
	assert.False(t, ok)
}

func TestRefresh(t *testing.T) {
	now := testNow
	m, _ := newTestManager("https://test.service-now.com", &now)

	_, err := m.Refresh("missing")
	assert.True(t, kberrors.IsSessionError(err))

	// 24h nominal window, so the threshold is 2h24m.
	tok := mustToken(testSecret, "u1", "user", []string{"employee"}, now, 3*time.Hour)
	orig, err := m.AuthenticateWithToken(context.Background(), tok)
	require.NoError(t, err)

	got, err := m.Refresh("u1")
	require.NoError(t, err)
	assert.Equal(t, orig, got)

	now = now.Add(time.Hour)
	_, err = m.Refresh("u1")
	ae, ok := kberrors.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, kberrors.ReauthRequired, ae.Kind)
	assert.True(t, ae.Reauth)

	// Refresh never edits the stored session.
	stored, _ := m.GetSession("u1")
	assert.Equal(t, orig, stored)
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	now := testNow
	m, _ := newTestManager("https://test.service-now.com", &now)
	ctx := context.Background()

	a := mustToken(testSecret, "user-a", "alice", []string{"employee"}, now, time.Hour)
	b := mustToken(testSecret, "user-b", "bob", []string{"manager"}, now, time.Hour)

	sa, err := m.AuthenticateWithToken(ctx, a)
	require.NoError(t, err)
	_, err = m.AuthenticateWithToken(ctx, b)
	require.NoError(t, err)
	assert.True(t, m.ClearSession("user-b"))

	got, ok := m.GetSession("user-a")
	require.True(t, ok)
	assert.Equal(t, sa, got)
	assert.False(t, m.ClearSession("user-b"))
}
