package auth

import (
	"time"

	"github.com/mycelian/servicenow-mcp/internal/config"
	"github.com/mycelian/servicenow-mcp/internal/session"
)

const testSecret = "test-secret-key-for-testing-only"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig(instanceURL string) *config.Config {
	return &config.Config{
		InstanceURL:        instanceURL,
		JWTSecretKey:       testSecret,
		JWTAlgorithm:       "HS256",
		JWTExpirationHours: 24,
		ClientID:           "client-id",
		ClientSecret:       "client-secret",
		APITimeoutSeconds:  5,
	}
}

func newTestManager(instanceURL string, now *time.Time) (*Manager, *session.Store) {
	clock := func() time.Time { return *now }
	store := session.NewStore(session.WithClock(clock))
	return NewManager(testConfig(instanceURL), store, WithClock(clock)), store
}

func mustToken(secret, userID, username string, roles []string, iat time.Time, ttl time.Duration) string {
	tok, err := IssueToken(secret, "HS256", userID, username, roles, iat, ttl)
	if err != nil {
		panic(err)
	}
	return tok
}
