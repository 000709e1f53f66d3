package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	kberrors "github.com/mycelian/servicenow-mcp/internal/errors"
)

// RetryPolicy bounds how transient knowledge store failures are retried.
// Only recoverable RemoteErrors are retried; auth errors never are.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is three retries starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
	}
}

func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.Multiplier = 2
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0
	exp.Reset()

	attempts := 0
	for {
		err := fn()
		if err == nil || !kberrors.IsTransient(err) || attempts >= p.MaxRetries {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		attempts++
		wait := exp.NextBackOff()
		remoteRetriesTotal.WithLabelValues(op).Inc()
		log.Warn().Err(err).Str("operation", op).Int("attempt", attempts).Dur("wait", wait).Msg("Retrying knowledge store request")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
