package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/resilience"
)

const defaultClientIdle = 10 * time.Minute

// RateLimitConfig configures per-client request limiting on the gateway.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	// IdleTimeout drops a client's bucket after this long without requests
	// (default 10m).
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// Enabled reports whether limiting is configured.
func (c RateLimitConfig) Enabled() bool { return c.RequestsPerSecond > 0 }

// RateLimit applies a token bucket per client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	clients := newClientLimiters(cfg, time.Now)

	return func(c *gin.Context) {
		if !clients.get(c.ClientIP()).Allow() {
			appErr := apperrors.RateLimited("gateway")
			c.AbortWithStatusJSON(appErr.Status(), appErr.ToResponse())
			return
		}
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *resilience.RateLimiter
	lastSeen time.Time
}

// clientLimiters holds one bucket per client key. Idle buckets are swept on
// access, at most once per idle period.
type clientLimiters struct {
	cfg       RateLimitConfig
	idle      time.Duration
	now       func() time.Time
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func newClientLimiters(cfg RateLimitConfig, now func() time.Time) *clientLimiters {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = defaultClientIdle
	}
	return &clientLimiters{
		cfg:       cfg,
		idle:      idle,
		now:       now,
		clients:   make(map[string]*clientLimiter),
		lastSweep: now(),
	}
}

func (l *clientLimiters) get(key string) *resilience.RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "gateway:" + key,
			Rate:  l.cfg.RequestsPerSecond,
			Burst: l.cfg.Burst,
		})}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops buckets idle since before now minus the idle period. Callers
// hold mu.
func (l *clientLimiters) sweep(now time.Time) {
	cutoff := now.Add(-l.idle)
	for key, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
