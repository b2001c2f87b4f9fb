package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by Wait when the caller's deadline ends before
// a token would be available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	Name string
	// Rate is requests per second; see PerMinute for hosted API quotas.
	Rate float64
	// Burst defaults to Rate rounded down, at least 1.
	Burst int
	// OnLimit runs each time a call has to wait or is refused.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig allows 10 requests per second with bursts of 20.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 10, Burst: 20}
}

// PerMinute converts a requests-per-minute quota into a Rate.
func PerMinute(n int) float64 { return float64(n) / 60 }

// RateLimiter is a token bucket shared by every call to one backend.
type RateLimiter struct {
	cfg RateLimiterConfig
	lim *rate.Limiter
}

// NewRateLimiter returns a limiter with a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRateLimiterConfig(cfg.Name).Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(int(cfg.Rate), 1)
	}
	return &RateLimiter{cfg: cfg, lim: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool { return rl.AllowN(1) }

// AllowN takes n tokens if available; otherwise it takes none.
func (rl *RateLimiter) AllowN(n int) bool {
	if rl.lim.AllowN(time.Now(), n) {
		return true
	}
	rl.limited()
	return false
}

// Wait blocks until a token is available. It fails fast with ErrRateLimited
// when ctx's deadline is sooner than that.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.lim.Allow() {
		return nil
	}
	rl.limited()

	r := rl.lim.Reserve()
	delay := r.Delay()
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < delay {
		r.Cancel()
		return fmt.Errorf("%w: %s: next slot in %s", ErrRateLimited, rl.cfg.Name, delay.Round(time.Millisecond))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Tokens returns the tokens available now.
func (rl *RateLimiter) Tokens() float64 { return rl.lim.Tokens() }

// Rate returns requests per second.
func (rl *RateLimiter) Rate() float64 { return rl.cfg.Rate }

// Burst returns the bucket size.
func (rl *RateLimiter) Burst() int { return rl.cfg.Burst }

func (rl *RateLimiter) limited() {
	if rl.cfg.OnLimit != nil {
		rl.cfg.OnLimit(rl.cfg.Name)
	}
}
