package llm

import (
	"time"

	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/resilience"
	"github.com/kbukum/modelkit/security"
)

// Config holds configuration for one LLM adapter. The Dialect field selects
// the backend mapping.
type Config struct {
	// Name identifies this adapter instance in logs and metrics.
	Name string `yaml:"name" json:"name"`
	// Dialect must match a dialect registered via RegisterDialect.
	Dialect string `yaml:"dialect" json:"dialect"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Model is the default model id.
	Model string `yaml:"model" json:"model"`
	// Temperature and MaxTokens apply when a request leaves them zero.
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	// Timeout for non-streaming HTTP requests. Defaults to 120s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	Auth    *httpclient.AuthConfig `yaml:"auth" json:"auth"`
	TLS     *security.TLSConfig    `yaml:"tls" json:"tls"`
	Headers map[string]string      `yaml:"headers" json:"headers"`

	Retry          *resilience.RetryConfig          `yaml:"retry" json:"retry"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" json:"rate_limiter"`
}

func (c *Config) applyDefaults(dialect string) {
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Name == "" {
		c.Name = dialect + "-llm"
	}
}

func (c Config) httpConfig() httpclient.Config {
	return httpclient.Config{
		Name:           c.Name,
		BaseURL:        c.BaseURL,
		Timeout:        c.Timeout,
		Auth:           c.Auth,
		TLS:            c.TLS,
		Headers:        c.Headers,
		Retry:          c.Retry,
		CircuitBreaker: c.CircuitBreaker,
		RateLimiter:    c.RateLimiter,
	}
}
