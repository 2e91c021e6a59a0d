// Package retry provides the retry-with-backoff combinator applied to all
// external ledger and suggestion-table calls. Transient failures are retried
// with exponential backoff and jitter up to a bounded attempt count;
// permanent failures (permission denied, invariant violations) short-circuit
// immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config parameterizes a retry loop
type Config struct {
	MaxAttempts     uint64        // total attempts including the first
	InitialInterval time.Duration // first wait between attempts
	MaxInterval     time.Duration // cap on the wait between attempts
	Multiplier      float64       // backoff growth factor
	Jitter          float64       // randomization factor, 0..1
}

// DefaultConfig returns the retry configuration used for external calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     4,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.3,
	}
}

// Permanent marks an error as non-retryable; Do returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op, retrying transient failures per the config. The context
// cancels waits between attempts.
func Do(ctx context.Context, cfg Config, op func() error) error {
	return backoff.Retry(op, newBackOff(ctx, cfg))
}

// DoValue runs op and returns its value, retrying transient failures per
// the config
func DoValue[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(op, newBackOff(ctx, cfg))
}

func newBackOff(ctx context.Context, cfg Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.Jitter
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock
	b.Reset()

	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)
}
