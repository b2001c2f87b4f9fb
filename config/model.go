package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/modelkit/util"
)

// Dialects accepted in ModelConfig.Dialect.
var Dialects = []string{"openai", "ollama", "tgi", "llamacpp", "gemini"}

// ModelConfig configures one named model. Unset fields fall back to the
// preset named by Preset; pointer overrides replace preset defaults.
type ModelConfig struct {
	// Preset names a catalog preset. Defaults to the map key.
	Preset string `yaml:"preset" mapstructure:"preset" validate:"required"`
	// Model is the backend model id, e.g. "llama3-70b-8192".
	Model string `yaml:"model" mapstructure:"model"`
	// Dialect selects the wire format of a local or OpenAI-compatible backend.
	Dialect string `yaml:"dialect" mapstructure:"dialect" validate:"omitempty,oneof=openai ollama tgi llamacpp gemini"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	// APIKey wins over APIKeyEnv; APIKeyEnv wins over the preset's env var.
	APIKey     string            `yaml:"api_key" mapstructure:"api_key"`
	APIKeyEnv  string            `yaml:"api_key_env" mapstructure:"api_key_env"`
	Timeout    time.Duration     `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	SkipVerify bool              `yaml:"skip_verify" mapstructure:"skip_verify"`
	Stream     bool              `yaml:"stream" mapstructure:"stream"`
	Headers    map[string]string `yaml:"headers" mapstructure:"headers"`

	System            *string  `yaml:"system" mapstructure:"system"`
	Temperature       *float64 `yaml:"temperature" mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopP              *float64 `yaml:"top_p" mapstructure:"top_p" validate:"omitempty,gt=0,lte=1"`
	TopK              *int     `yaml:"top_k" mapstructure:"top_k" validate:"omitempty,gte=0"`
	MaxNewTokens      *int     `yaml:"max_new_tokens" mapstructure:"max_new_tokens" validate:"omitempty,gt=0"`
	RepetitionPenalty *float64 `yaml:"repetition_penalty" mapstructure:"repetition_penalty" validate:"omitempty,gt=0"`
	// MaxLength caps prompt plus completion tokens; 0 keeps the preset value.
	MaxLength int `yaml:"max_length" mapstructure:"max_length" validate:"gte=0"`

	// RetryWait is the fixed wait after a 429. MaxRetries bounds the retries;
	// 0 keeps the preset policy.
	RetryWait  time.Duration `yaml:"retry_wait" mapstructure:"retry_wait" validate:"gte=0"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	// RateLimit is the client-side request rate in requests per second.
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// BreakerFailures consecutive 5xx, timeout or connection failures open
	// the model's circuit for BreakerCooldown (default 30s). 0 disables it.
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"gte=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown" validate:"gte=0"`
	// Priority orders default-model selection; higher wins.
	Priority int `yaml:"priority" mapstructure:"priority"`
}

// ResolveAPIKey returns the configured key, or the value of the key's
// environment variable. fallbackEnv is the preset's variable.
func (m ModelConfig) ResolveAPIKey(fallbackEnv string) string {
	if m.APIKey != "" {
		return m.APIKey
	}
	if m.APIKeyEnv != "" {
		return os.Getenv(m.APIKeyEnv)
	}
	if fallbackEnv != "" {
		return os.Getenv(fallbackEnv)
	}
	return ""
}

// String describes the model without secrets.
func (m ModelConfig) String() string {
	s := fmt.Sprintf("preset=%s model=%s dialect=%s base_url=%s", m.Preset, m.Model, m.Dialect, m.BaseURL)
	if m.APIKey != "" {
		s += " api_key=" + util.MaskSecret(m.APIKey, 3)
	}
	return s
}
