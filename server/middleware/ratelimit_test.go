package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiters_EvictsIdleClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	l := newClientLimiters(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute}, now)

	first := l.get("10.0.0.1")
	l.get("10.0.0.2")
	assert.Equal(t, 2, l.size())

	clock = clock.Add(30 * time.Second)
	assert.Same(t, first, l.get("10.0.0.1"))

	// 10.0.0.2 has been idle for a full period; 10.0.0.1 was seen 30s ago.
	clock = clock.Add(40 * time.Second)
	l.get("10.0.0.3")
	assert.Equal(t, 2, l.size())
	assert.Same(t, first, l.get("10.0.0.1"))

	clock = clock.Add(5 * time.Minute)
	l.get("10.0.0.4")
	assert.Equal(t, 1, l.size())
	assert.NotSame(t, first, l.get("10.0.0.1"))
}

func TestClientLimiters_DefaultIdle(t *testing.T) {
	l := newClientLimiters(RateLimitConfig{RequestsPerSecond: 1}, time.Now)
	assert.Equal(t, defaultClientIdle, l.idle)
}
