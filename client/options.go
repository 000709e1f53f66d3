package client

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithRESTClient replaces the client's HTTP stack with rc.
func WithRESTClient(rc *resty.Client) Option {
	return func(c *Client) error {
		if rc == nil {
			return fmt.Errorf("rest client cannot be nil")
		}
		c.http = rc
		return nil
	}
}

// WithHTTPTimeout bounds every remote call. The value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.SetTimeout(d)
		return nil
	}
}

// WithDebugLogging installs the dumping transport when enabled is true.
// Do not enable this in production; dumps include URLs and payloads.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.http.SetTransport(&debugTransport{base: defaultTransport()})
		}
		return nil
	}
}

// WithRetryPolicy retries transient failures up to maxRetries times,
// starting at initial and doubling.
func WithRetryPolicy(maxRetries int, initial time.Duration) Option {
	return func(c *Client) error {
		if maxRetries < 0 {
			return fmt.Errorf("max retries must be >= 0")
		}
		c.retry.MaxRetries = maxRetries
		c.retry.InitialInterval = initial
		return nil
	}
}

// WithStrictExactMatch makes the exact-id and exact-title kinds use
// equality instead of substring matching.
func WithStrictExactMatch(strict bool) Option {
	return func(c *Client) error {
		c.filters.StrictExact = strict
		return nil
	}
}
