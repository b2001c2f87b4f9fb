package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drained returns a limiter whose single token is already spent.
func drained(cfg RateLimiterConfig) *RateLimiter {
	cfg.Burst = 1
	rl := NewRateLimiter(cfg)
	rl.Allow()
	return rl
}

func TestRateLimiter_Burst(t *testing.T) {
	var limited []string
	rl := NewRateLimiter(RateLimiterConfig{
		Name:    "groq-qwen",
		Rate:    1,
		Burst:   3,
		OnLimit: func(name string) { limited = append(limited, name) },
	})
	for i := range 3 {
		require.True(t, rl.Allow(), "request %d within burst", i)
	}
	assert.False(t, rl.Allow())
	assert.Equal(t, []string{"groq-qwen"}, limited)

	bulk := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 5})
	assert.True(t, bulk.AllowN(5))
	assert.False(t, bulk.AllowN(1))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := drained(RateLimiterConfig{Rate: 100})
	assert.Eventually(t, rl.Allow, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_WaitBlocksForToken(t *testing.T) {
	rl := drained(RateLimiterConfig{Rate: 50})

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRateLimiter_WaitPastDeadline(t *testing.T) {
	rl := drained(RateLimiterConfig{Name: "sambanova", Rate: PerMinute(1)})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), 40*time.Millisecond, "must fail without sleeping")
	assert.GreaterOrEqual(t, rl.Tokens(), -0.01, "the abandoned reservation is returned")
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := drained(RateLimiterConfig{Rate: 1})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	assert.Equal(t, 10.0, rl.Rate())
	assert.Equal(t, 10, rl.Burst())
	assert.LessOrEqual(t, rl.Tokens(), 10.0)

	assert.Equal(t, 1, NewRateLimiter(RateLimiterConfig{Rate: PerMinute(30)}).Burst(), "sub-1 rates get a burst of 1")
}
