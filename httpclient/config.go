package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/modelkit/resilience"
	"github.com/kbukum/modelkit/security"
)

const defaultTimeout = 30 * time.Second

// Config configures the HTTP client used to reach one backend.
type Config struct {
	// Name labels the backend in errors and breaker logs.
	Name    string        `yaml:"name" mapstructure:"name"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Auth applies to every request unless the request sets its own.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	TLS     *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	Headers map[string]string   `yaml:"headers" mapstructure:"headers"`

	// Nil policies are off. Retry covers Do only; streams are never retried.
	Retry          *resilience.RetryConfig          `yaml:"-" mapstructure:"-"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults sets a 30s timeout and the name "http".
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive (got: %s)", c.Timeout)
	}
	if c.TLS == nil {
		return nil
	}
	return c.TLS.Validate()
}

// DefaultRetryConfig backs off exponentially on IsRetryable errors.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// RateLimitRetryConfig retries only HTTP 429 responses, sleeping wait
// between attempts. A shorter Retry-After hint from the server wins.
func RateLimitRetryConfig(maxAttempts int, wait time.Duration) *resilience.RetryConfig {
	cfg := resilience.FixedRetryConfig(maxAttempts, wait, IsRateLimit)
	cfg.DelayFor = RetryAfter
	return &cfg
}
