package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/resilience"
)

// ResilienceConfig selects the policies WithResilience applies. Nil fields
// are skipped.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
	RateLimiter    *resilience.RateLimiterConfig
	Bulkhead       *resilience.BulkheadConfig
}

// IsEmpty reports whether no policy is set.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// WithResilience wraps p so each Execute passes, in order, the rate limiter,
// the bulkhead, the circuit breaker and then the retry loop. The breaker
// sees one outcome per call, after retries. An empty cfg returns p.
func WithResilience[I, O any](p RequestResponse[I, O], cfg ResilienceConfig) RequestResponse[I, O] {
	if cfg.IsEmpty() {
		return p
	}
	pol := &policies{retry: cfg.Retry}
	if cfg.CircuitBreaker != nil {
		pol.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		pol.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		pol.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return &resilient[I, O]{inner: p, pol: pol}
}

type policies struct {
	cb    *resilience.CircuitBreaker
	rl    *resilience.RateLimiter
	bh    *resilience.Bulkhead
	retry *resilience.RetryConfig
}

func (p *policies) circuitOpen() bool {
	return p.cb != nil && p.cb.State() == resilience.StateOpen
}

type resilient[I, O any] struct {
	inner RequestResponse[I, O]
	pol   *policies
}

func (r *resilient[I, O]) Name() string { return r.inner.Name() }

// IsAvailable is false while the circuit is open.
func (r *resilient[I, O]) IsAvailable(ctx context.Context) bool {
	return !r.pol.circuitOpen() && r.inner.IsAvailable(ctx)
}

func (r *resilient[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return guarded(ctx, r.pol, func() (O, error) { return r.inner.Execute(ctx, input) })
}

func (r *resilient[I, O]) Close(ctx context.Context) error { return closeInner(ctx, r.inner) }

// guarded runs call under pol. Errors raised by a policy itself come back
// as AppError; errors from call are returned as is.
func guarded[T any](ctx context.Context, pol *policies, call func() (T, error)) (T, error) {
	var zero T
	if pol.rl != nil {
		if err := pol.rl.Wait(ctx); err != nil {
			return zero, policyError(err)
		}
	}

	attempt := call
	if pol.retry != nil {
		cfg := *pol.retry
		attempt = func() (T, error) { return resilience.Retry(ctx, cfg, call) }
	}

	run := func() (T, error) {
		if pol.cb == nil {
			return attempt()
		}
		if err := pol.cb.Allow(); err != nil {
			return zero, policyError(err)
		}
		out, err := attempt()
		pol.cb.Record(err)
		return out, err
	}

	if pol.bh == nil {
		return run()
	}
	var (
		out    T
		runErr error
	)
	if err := pol.bh.Execute(ctx, func() error {
		out, runErr = run()
		return runErr
	}); err != nil && runErr == nil {
		return zero, policyError(err)
	}
	return out, runErr
}

func policyError(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("provider").WithCause(err)
	case errors.Is(err, resilience.ErrRateLimited):
		return apperrors.RateLimited("provider").WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.ServiceUnavailable("provider").WithCause(err).
			WithDetail("reason", "concurrency limit reached")
	case errors.Is(err, context.Canceled):
		return apperrors.Timeout("request canceled").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("deadline exceeded").WithCause(err)
	}
	return err
}
