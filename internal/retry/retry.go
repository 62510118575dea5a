// Package retry executes store operations with bounded exponential
// backoff. Only errors marked transient by the storage layer are retried;
// business rejections and validation errors propagate immediately.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/parcelmesh/baglink/pkg/types"
)

// Config validation error.
var ErrConfigInvalid = errors.New("invalid retry configuration")

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after each attempt.
	BackoffFactor float64

	// JitterFactor is the maximum jitter as a fraction of the wait (0-1).
	JitterFactor float64
}

// DefaultConfig returns the standard retry policy: three attempts,
// 100ms initial backoff doubling to a 5s cap, 20% jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return ErrConfigInvalid
	}
	if c.InitialBackoff <= 0 || c.MaxBackoff < c.InitialBackoff {
		return ErrConfigInvalid
	}
	if c.BackoffFactor < 1.0 {
		return ErrConfigInvalid
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		return ErrConfigInvalid
	}
	return nil
}

// Do runs op, retrying while it returns an error marked retryable by
// types.MarkRetryable. Non-retryable errors return immediately. When all
// attempts fail, the last error is returned still carrying its retryable
// mark so the caller can decide whether to try again later.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !types.Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(backoff, cfg.JitterFactor)):
		}

		backoff = nextBackoff(backoff, cfg.BackoffFactor, cfg.MaxBackoff)
	}

	return lastErr
}

// withJitter spreads a wait across [d*(1-jitter), d*(1+jitter)] to avoid
// synchronized retry storms.
func withJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	multiplier := 1.0 + (rand.Float64()*2-1)*jitter
	return time.Duration(float64(d) * multiplier)
}

// nextBackoff scales the wait for the following attempt, capped at max.
func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}
