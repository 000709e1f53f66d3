// Package session holds authenticated caller state in memory. Sessions are
// values: re-authentication replaces a session, it never edits one.
package session

import (
	"strings"
	"time"
)

// AuthMethod records how a session was established.
type AuthMethod string

const (
	// AuthMethodJWT sessions come from a verified signed token and cannot be refreshed.
	AuthMethodJWT AuthMethod = "jwt"
	// AuthMethodOAuth sessions carry a bearer token issued by the remote store.
	AuthMethodOAuth AuthMethod = "oauth"
)

// Session is an authenticated identity with its role set and expiry.
type Session struct {
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Roles      []string   `json:"roles"`
	Token      string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AuthMethod AuthMethod `json:"auth_method"`
}

// New builds a Session with a normalized role set.
func New(userID, username string, roles []string, token string, expiresAt time.Time, method AuthMethod) Session {
	return Session{
		UserID:     userID,
		Username:   username,
		Roles:      NormalizeRoles(roles),
		Token:      token,
		ExpiresAt:  expiresAt,
		AuthMethod: method,
	}
}

// IsExpired reports whether the session is unusable at time now.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Remaining is the lifetime left at time now, never negative.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// HasRole reports membership in the session's role set.
func (s Session) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	out := s
	if s.Roles != nil {
		out.Roles = append([]string(nil), s.Roles...)
	}
	return out
}

// NormalizeRoles trims, drops empties and removes duplicates while keeping
// first-seen order.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
