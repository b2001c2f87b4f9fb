package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// Jitter spreads each wait by up to this fraction either way.
	Jitter float64
	// RetryIf reports whether err is worth another attempt.
	RetryIf func(error) bool
	// DelayFor replaces the computed wait for err when it reports true,
	// e.g. with a server's Retry-After hint. MaxBackoff still applies.
	DelayFor func(err error) (time.Duration, bool)
	OnRetry  func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig makes 3 attempts with jittered exponential backoff
// from 100ms to 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// FixedRetryConfig waits the same interval between every attempt. A nil
// retryIf retries everything but context errors.
func FixedRetryConfig(maxAttempts int, wait time.Duration, retryIf func(error) bool) RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: wait,
		MaxBackoff:     wait,
		BackoffFactor:  1,
		RetryIf:        retryIf,
	}
}

// DefaultRetryIf retries every error except context cancellation and expiry.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// withDefaults fills zero fields from DefaultRetryConfig.
func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.RetryIf == nil {
		c.RetryIf = d.RetryIf
	}
	return c
}

// Retry calls fn until it succeeds, returns an error RetryIf rejects, or
// MaxAttempts is reached. The last error is returned unchanged.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.RetryIf(err) {
			return zero, err
		}

		wait := cfg.waitAfter(attempt, err)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func (c RetryConfig) waitAfter(attempt int, err error) time.Duration {
	if c.DelayFor != nil {
		if d, ok := c.DelayFor(err); ok && d > 0 {
			return min(d, c.MaxBackoff)
		}
	}
	return calculateBackoff(attempt, c)
}

// calculateBackoff returns InitialBackoff * BackoffFactor^(attempt-1),
// jittered and capped at MaxBackoff.
func calculateBackoff(attempt int, c RetryConfig) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.Jitter > 0 {
		d += d * c.Jitter * (2*rand.Float64() - 1)
	}
	switch {
	case d > float64(c.MaxBackoff):
		return c.MaxBackoff
	case d <= 0:
		return c.InitialBackoff
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
