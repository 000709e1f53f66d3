package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// AuthMethod selects how callers prove their identity.
type AuthMethod string

const (
	AuthMethodJWT   AuthMethod = "jwt"
	AuthMethodOAuth AuthMethod = "oauth"
)

// Config holds the configuration for the knowledge MCP server.
// Keys are read without a prefix so existing deployments keep working.
type Config struct {
	InstanceURL string `envconfig:"SERVICENOW_INSTANCE_URL" required:"true"`

	// Signed token verification
	JWTSecretKey       string `envconfig:"JWT_SECRET_KEY"`
	JWTAlgorithm       string `envconfig:"JWT_ALGORITHM" default:"HS256"`
	JWTExpirationHours int    `envconfig:"JWT_EXPIRATION_HOURS" default:"24"`

	// OAuth client pair used for the password grant
	ClientID     string `envconfig:"SERVICENOW_CLIENT_ID"`
	ClientSecret string `envconfig:"SERVICENOW_CLIENT_SECRET"`

	// Remote calls
	APITimeoutSeconds int     `envconfig:"SERVICENOW_API_TIMEOUT" default:"30"`
	MaxRetries        int     `envconfig:"SERVICENOW_MAX_RETRIES" default:"3"`
	RetryDelaySeconds float64 `envconfig:"SERVICENOW_RETRY_DELAY" default:"1.0"`
	StrictExactMatch  bool    `envconfig:"STRICT_EXACT_MATCH" default:"false"`
	Debug             bool    `envconfig:"SERVICENOW_DEBUG" default:"false"`

	SessionSweepSeconds int `envconfig:"SESSION_SWEEP_INTERVAL" default:"300"`

	// MCP server
	ServerName      string        `envconfig:"MCP_SERVER_NAME" default:"servicenow-knowledge-server"`
	ServerVersion   string        `envconfig:"MCP_SERVER_VERSION" default:"1.0.0"`
	Transport       string        `envconfig:"MCP_TRANSPORT" default:"auto"`
	HTTPAddr        string        `envconfig:"MCP_HTTP_ADDR" default:":11546"`
	HTTPReadTimeout time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"5s"`
	HTTPIdleTimeout time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MetricsAddr     string        `envconfig:"METRICS_ADDR"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// New creates a new Config by parsing environment variables and validating
// the result.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and derives nothing. It is separate from New
// so CLI flag overrides can be re-validated.
func (c *Config) Validate() error {
	u, err := url.Parse(c.InstanceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SERVICENOW_INSTANCE_URL must be an http(s) URL, got %q", c.InstanceURL)
	}
	c.InstanceURL = strings.TrimRight(c.InstanceURL, "/")

	if _, err := c.AuthMethod(); err != nil {
		return err
	}
	if c.JWTExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be > 0")
	}
	if c.APITimeoutSeconds <= 0 {
		return fmt.Errorf("SERVICENOW_API_TIMEOUT must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("SERVICENOW_MAX_RETRIES must be >= 0")
	}
	if c.RetryDelaySeconds < 0 {
		return fmt.Errorf("SERVICENOW_RETRY_DELAY must be >= 0")
	}
	if c.SessionSweepSeconds <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	switch c.Transport {
	case "auto", "stdio", "http":
	default:
		return fmt.Errorf("unsupported MCP_TRANSPORT: %s", c.Transport)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.LogFormat)
	}
	return nil
}

// AuthMethod derives the identity scheme from which secrets are present.
func (c *Config) AuthMethod() (AuthMethod, error) {
	switch {
	case c.JWTSecretKey != "":
		return AuthMethodJWT, nil
	case c.ClientID != "" && c.ClientSecret != "":
		return AuthMethodOAuth, nil
	default:
		return "", fmt.Errorf("either JWT_SECRET_KEY or SERVICENOW_CLIENT_ID and SERVICENOW_CLIENT_SECRET must be set")
	}
}

// APITimeout is the per-call bound for remote requests.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// RetryDelay is the first backoff interval.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// TokenLifetime is the nominal session window used by refresh.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

// SweepInterval is the period of the expired-session sweep.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SessionSweepSeconds) * time.Second
}

// LogSummary writes the effective, non-secret configuration.
func (c *Config) LogSummary() {
	method, _ := c.AuthMethod()
	log.Info().
		Str("instance_url", c.InstanceURL).
		Str("auth_method", string(method)).
		Str("jwt_algorithm", c.JWTAlgorithm).
		Int("api_timeout_s", c.APITimeoutSeconds).
		Int("max_retries", c.MaxRetries).
		Bool("strict_exact_match", c.StrictExactMatch).
		Str("transport", c.Transport).
		Str("metrics_addr", c.MetricsAddr).
		Msg("Configuration loaded")
}
