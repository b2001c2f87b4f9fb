package httpclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/modelkit/security"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "http", cfg.Name)

	kept := Config{Name: "tgi", Timeout: 10 * time.Second}
	kept.ApplyDefaults()
	assert.Equal(t, 10*time.Second, kept.Timeout)
	assert.Equal(t, "tgi", kept.Name)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Timeout: time.Second}, false},
		{"zero timeout", Config{}, true},
		{"skip verify", Config{Timeout: time.Second, TLS: &security.TLSConfig{SkipVerify: true}}, false},
		{"cert without key", Config{Timeout: time.Second, TLS: &security.TLSConfig{CertFile: "c.pem"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.True(t, cfg.RetryIf(ClassifyStatusCode(503, nil)), "5xx is retried")
	assert.False(t, cfg.RetryIf(ClassifyStatusCode(401, nil)), "auth is not retried")
}

func TestRateLimitRetryConfig(t *testing.T) {
	cfg := RateLimitRetryConfig(4, 12*time.Second)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 12*time.Second, cfg.InitialBackoff)
	assert.Equal(t, 12*time.Second, cfg.MaxBackoff)

	assert.True(t, cfg.RetryIf(ClassifyStatusCode(429, nil)))
	assert.False(t, cfg.RetryIf(ClassifyStatusCode(500, nil)))
	assert.False(t, cfg.RetryIf(errors.New("other")))

	require.NotNil(t, cfg.DelayFor, "Retry-After is honoured")
	d, ok := cfg.DelayFor(&Error{Code: ErrCodeRateLimit, RetryAfter: 3 * time.Second})
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, d)
}
