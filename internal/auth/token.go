package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

// Claims is the payload of a signed session token.
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthenticateWithToken verifies a signed token and stores the session it
// describes, replacing any earlier session for the same subject.
func (m *Manager) AuthenticateWithToken(_ context.Context, token string) (session.Session, error) {
	key, err := m.verificationKey()
	if err != nil {
		authAttempt("jwt", "config_missing")
		return session.Session{}, err
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{m.cfg.JWTAlgorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		authAttempt("jwt", "expired")
		return session.Session{}, kberrors.WrapAuthError(kberrors.ExpiredToken, "token has expired", err)
	case err != nil:
		authAttempt("jwt", "invalid")
		log.Debug().Err(err).Msg("Signed token rejected")
		return session.Session{}, kberrors.WrapAuthError(kberrors.InvalidToken, "token could not be verified", err)
	}

	if missing := missingClaims(claims); len(missing) > 0 {
		authAttempt("jwt", "invalid")
		return session.Session{}, kberrors.NewAuthError(kberrors.InvalidToken,
			fmt.Sprintf("token is missing required claims: %s", strings.Join(missing, ", ")))
	}

	sess := session.New(claims.Subject, claims.Username, claims.Roles, token, claims.ExpiresAt.Time, session.AuthMethodJWT)
	if err := m.store.Put(sess); err != nil {
		return session.Session{}, err
	}
	authAttempt("jwt", "success")
	log.Info().Str("user_id", sess.UserID).Str("username", sess.Username).Strs("roles", sess.Roles).Msg("Authenticated with signed token")
	return sess, nil
}

func missingClaims(c *Claims) []string {
	var missing []string
	if c.Subject == "" {
		missing = append(missing, "sub")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Roles == nil {
		missing = append(missing, "roles")
	}
	if c.IssuedAt == nil {
		missing = append(missing, "iat")
	}
	if c.ExpiresAt == nil {
		missing = append(missing, "exp")
	}
	return missing
}

// verificationKey turns the configured secret into the key type the
// configured algorithm expects.
func (m *Manager) verificationKey() (interface{}, error) {
	secret := m.cfg.JWTSecretKey
	if secret == "" {
		return nil, kberrors.NewAuthError(kberrors.ConfigMissing, "no token verification secret is configured")
	}
	alg := m.cfg.JWTAlgorithm
	switch {
	case strings.HasPrefix(alg, "HS"):
		return []byte(secret), nil
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(secret))
		if err != nil {
			return nil, kberrors.WrapAuthError(kberrors.ConfigMissing, "verification key is not an RSA public key", err)
		}
		return k, nil
	case strings.HasPrefix(alg, "ES"):
		k, err := jwt.ParseECPublicKeyFromPEM([]byte(secret))
		if err != nil {
			return nil, kberrors.WrapAuthError(kberrors.ConfigMissing, "verification key is not an EC public key", err)
		}
		return k, nil
	default:
		return nil, kberrors.NewAuthError(kberrors.ConfigMissing, "unsupported signing algorithm "+alg)
	}
}

// IssueToken signs a session token for local testing and operator tooling.
// Only HMAC algorithms can sign with the shared secret.
func IssueToken(secret, alg, userID, username string, roles []string, now time.Time, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil || !strings.HasPrefix(alg, "HS") {
		return "", fmt.Errorf("cannot sign with algorithm %q using a shared secret", alg)
	}
	if roles == nil {
		roles = []string{}
	}
	claims := Claims{
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
}
