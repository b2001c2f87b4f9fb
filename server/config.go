package server

import (
	"fmt"
	"time"

	"github.com/kbukum/modelkit/auth/jwt"
	"github.com/kbukum/modelkit/server/middleware"
	"github.com/kbukum/modelkit/util"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Host         string                     `yaml:"host" mapstructure:"host"`
	Port         int                        `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration              `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration              `yaml:"write_timeout" mapstructure:"write_timeout"` // covers generation
	IdleTimeout  time.Duration              `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodySize  string                     `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "1MiB" or "2MB"
	CORS         middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit    middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Auth         AuthConfig                 `yaml:"auth" mapstructure:"auth"`
}

// AuthConfig enables bearer-token auth on the gateway.
type AuthConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string        `yaml:"issuer" mapstructure:"issuer"`
	Audience  string        `yaml:"audience" mapstructure:"audience"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// SkipPaths bypass auth; health checks stay public by default.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// JWT converts the auth settings into a token service config.
func (a AuthConfig) JWT() jwt.Config {
	return jwt.Config{
		Secret:   a.JWTSecret,
		Issuer:   a.Issuer,
		Audience: a.Audience,
		TTL:      a.TokenTTL,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	c.ReadTimeout = util.Coalesce(c.ReadTimeout, 15*time.Second)
	c.WriteTimeout = util.Coalesce(c.WriteTimeout, 5*time.Minute)
	c.IdleTimeout = util.Coalesce(c.IdleTimeout, time.Minute)
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MiB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID}
	}
	if len(c.Auth.SkipPaths) == 0 {
		c.Auth.SkipPaths = []string{"/health", "/version", "/info"}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be non-negative (got: %v)", c.RateLimit.RequestsPerSecond)
	}
	if c.Auth.Enabled {
		cfg := c.Auth.JWT()
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("server.auth: %w", err)
		}
	}
	return nil
}
