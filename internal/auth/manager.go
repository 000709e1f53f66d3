// Package auth establishes caller identity and owns the session lifecycle.
//
// Three login paths exist: a signed token verified locally, a username and
// password exchanged for a bearer token at the remote store, and an opaque
// bearer token obtained elsewhere (client credentials) that is only probed
// for validity.
package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/mycelian/servicenow-mcp/client"
	"github.com/mycelian/servicenow-mcp/internal/config"
	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

const (
	tokenPath   = "/oauth_token.do"
	profilePath = "/api/now/v1/user/profile"
	rolesPath   = "/api/now/table/sys_user_has_role"
	probePath   = "/api/now/table/kb_knowledge"

	defaultTokenLifetime = 3600 * time.Second
	opaqueLifetime       = 30 * time.Minute
	fallbackRole         = "knowledge"
)

// Client-credential tokens carry no per-user identity, so every opaque-token
// login maps to this service principal.
const (
	ServiceUserID   = "oauth_service_user"
	ServiceUsername = "oauth_service"
)

var serviceRoles = []string{"mcp_user", "knowledge"}

// Manager verifies credentials and keeps the resulting sessions.
type Manager struct {
	cfg   *config.Config
	store *session.Store
	http  *resty.Client
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRESTClient shares an existing resty client (and its connection pool).
func WithRESTClient(rc *resty.Client) Option {
	return func(m *Manager) { m.http = rc }
}

// WithClock overrides the time source; tests use it to pin expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager over store.
func NewManager(cfg *config.Config, store *session.Store, opts ...Option) *Manager {
	m := &Manager{cfg: cfg, store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.http == nil {
		m.http = client.NewRESTClient(cfg.InstanceURL, cfg.APITimeout(), cfg.Debug)
	}
	return m
}

// AuthenticateWithCredentials exchanges username and password for a bearer
// token, then looks up the caller's profile and roles with it.
func (m *Manager) AuthenticateWithCredentials(ctx context.Context, username, password string) (session.Session, error) {
	start := time.Now()
	if m.cfg.ClientID == "" || m.cfg.ClientSecret == "" {
		authAttempt("password", "config_missing")
		return session.Session{}, kberrors.NewAuthError(kberrors.ConfigMissing, "OAuth client credentials are not configured")
	}

	resp, err := m.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "password",
			"client_id":     m.cfg.ClientID,
			"client_secret": m.cfg.ClientSecret,
			"username":      username,
			"password":      password,
		}).
		Post(tokenPath)
	if err != nil {
		authAttempt("password", "network_error")
		return session.Session{}, kberrors.NewNetworkError("token exchange", err)
	}
	if resp.StatusCode() != 200 {
		authAttempt("password", "rejected")
		log.Warn().Str("username", username).Int("status", resp.StatusCode()).Msg("Token exchange rejected")
		return session.Session{}, kberrors.NewAuthError(kberrors.ExchangeFailed, "token exchange was rejected by the instance")
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &tok); err != nil || tok.AccessToken == "" {
		authAttempt("password", "rejected")
		return session.Session{}, kberrors.WrapAuthError(kberrors.ExchangeFailed, "token response had no access token", err)
	}
	lifetime := defaultTokenLifetime
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}

	userID, name, err := m.fetchProfile(ctx, tok.AccessToken)
	if err != nil {
		authAttempt("password", "profile_failed")
		return session.Session{}, err
	}
	roles := m.fetchRoles(ctx, tok.AccessToken, userID)

	sess := session.New(userID, name, roles, tok.AccessToken, m.now().Add(lifetime), session.AuthMethodOAuth)
	if err := m.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	authAttempt("password", "success")
	log.Info().
		Str("user_id", userID).
		Str("username", name).
		Strs("roles", sess.Roles).
		Dur("elapsed", time.Since(start)).
		Msg("Authenticated with password exchange")
	return sess, nil
}

func (m *Manager) fetchProfile(ctx context.Context, accessToken string) (string, string, error) {
	resp, err := m.http.R().SetContext(ctx).SetAuthToken(accessToken).Get(profilePath)
	if err != nil {
		return "", "", kberrors.NewNetworkError("profile fetch", err)
	}
	if resp.StatusCode() != 200 {
		return "", "", kberrors.NewAuthError(kberrors.ExchangeFailed, "could not load the user profile")
	}
	var body struct {
		Result struct {
			SysID    string `json:"sys_id"`
			UserName string `json:"user_name"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Result.SysID == "" {
		return "", "", kberrors.WrapAuthError(kberrors.ExchangeFailed, "user profile response was malformed", err)
	}
	return body.Result.SysID, body.Result.UserName, nil
}

// fetchRoles never fails; any problem yields the default knowledge role.
func (m *Manager) fetchRoles(ctx context.Context, accessToken, userID string) []string {
	resp, err := m.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(map[string]string{
			"sysparm_query":  "user=" + userID,
			"sysparm_fields": "role.name",
		}).
		Get(rolesPath)
	if err != nil || resp.StatusCode() != 200 {
		ev := log.Warn().Str("user_id", userID)
		if err != nil {
			ev = ev.Err(err)
		} else {
			ev = ev.Int("status", resp.StatusCode())
		}
		ev.Msg("Failed to fetch user roles, using default role")
		return []string{fallbackRole}
	}

	var body struct {
		Result []map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Malformed role list, using default role")
		return []string{fallbackRole}
	}
	roles := make([]string, 0, len(body.Result))
	for _, rec := range body.Result {
		if name := roleName(rec); name != "" {
			roles = append(roles, name)
		}
	}
	return roles
}

// roleName accepts both the flat dot-walked key and a nested role object.
func roleName(rec map[string]json.RawMessage) string {
	if raw, ok := rec["role.name"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	if raw, ok := rec["role"]; ok {
		var nested struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &nested) == nil {
			return nested.Name
		}
	}
	return ""
}

// AuthenticateWithOpaqueToken probes the knowledge table with token and, if
// the instance accepts it, creates the shared service session.
func (m *Manager) AuthenticateWithOpaqueToken(ctx context.Context, token string) (session.Session, error) {
	resp, err := m.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("sysparm_limit", "1").
		Get(probePath)
	if err != nil {
		authAttempt("opaque", "network_error")
		return session.Session{}, kberrors.NewNetworkError("token probe", err)
	}
	if resp.StatusCode() != 200 {
		authAttempt("opaque", "rejected")
		log.Warn().Int("status", resp.StatusCode()).Msg("Opaque token rejected by instance")
		return session.Session{}, kberrors.NewAuthError(kberrors.TokenInvalid, "bearer token was rejected by the instance")
	}

	sess := session.New(ServiceUserID, ServiceUsername, serviceRoles, token, m.now().Add(opaqueLifetime), session.AuthMethodOAuth)
	if err := m.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	authAttempt("opaque", "success")
	log.Info().Str("user_id", sess.UserID).Msg("Authenticated with opaque bearer token")
	return sess, nil
}

// GetSession is a pure lookup.
func (m *Manager) GetSession(userID string) (session.Session, bool) {
	return m.store.Get(userID)
}

// ResolveSession returns a usable session or a SessionError explaining why
// there is none.
func (m *Manager) ResolveSession(userID string) (session.Session, error) {
	sess, ok := m.store.Get(userID)
	if !ok {
		return session.Session{}, kberrors.NewSessionError(kberrors.SessionNotFound, userID)
	}
	if sess.IsExpired(m.now()) {
		return session.Session{}, kberrors.NewSessionError(kberrors.SessionExpired, userID)
	}
	return sess, nil
}

// ClearSession removes userID's session and reports whether one existed.
func (m *Manager) ClearSession(userID string) bool {
	ok := m.store.Delete(userID)
	if ok {
		log.Info().Str("user_id", userID).Msg("Session cleared")
	}
	return ok
}

// SweepExpired removes every expired session.
func (m *Manager) SweepExpired() int {
	return m.store.SweepExpired()
}

// Refresh returns the existing session while more than a tenth of the
// nominal token lifetime remains. Past that point the caller must log in
// again; sessions are never extended in place.
func (m *Manager) Refresh(userID string) (session.Session, error) {
	sess, ok := m.store.Get(userID)
	if !ok {
		return session.Session{}, kberrors.NewSessionError(kberrors.SessionNotFound, userID)
	}
	threshold := m.cfg.TokenLifetime() / 10
	if sess.Remaining(m.now()) > threshold {
		return sess, nil
	}
	if sess.AuthMethod == session.AuthMethodJWT {
		return session.Session{}, kberrors.NewAuthError(kberrors.ReauthRequired, "signed-token sessions cannot be refreshed; provide a new token")
	}
	return session.Session{}, kberrors.NewAuthError(kberrors.ReauthRequired, "session is close to expiry; authenticate again")
}
