package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appYAML = `
base:
  name: modelkit
  environment: production
logging:
  level: debug
  format: json
default_models: [groq-qwen]
models:
  groq-qwen:
    api_key_env: TEST_GROQ_KEY
    retry_wait: 5s
  local:
    preset: vicuna
    dialect: tgi
    base_url: http://localhost:8080
    model: lmsys/vicuna-7b-v1.5
    temperature: 0.2
    max_new_tokens: 64
server:
  port: 9090
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yml", appYAML)

	var cfg AppConfig
	require.NoError(t, Load("modelkit", &cfg, WithConfigFile(path), WithFileSystem(&mockFS{files: map[string]bool{path: true}})))

	assert.Equal(t, "production", cfg.Base.Environment)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"groq-qwen"}, cfg.DefaultModels)

	require.Contains(t, cfg.Models, "groq-qwen")
	groq := cfg.Models["groq-qwen"]
	assert.Equal(t, "groq-qwen", groq.Preset)
	assert.Equal(t, 5*time.Second, groq.RetryWait)

	local := cfg.Models["local"]
	assert.Equal(t, "vicuna", local.Preset)
	assert.Equal(t, "tgi", local.Dialect)
	require.NotNil(t, local.Temperature)
	assert.InDelta(t, 0.2, *local.Temperature, 1e-9)
	require.NotNil(t, local.MaxNewTokens)
	assert.Equal(t, 64, *local.MaxNewTokens)
	assert.Nil(t, local.TopP)
}

func TestAppConfigValidate(t *testing.T) {
	bad := 3.0
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{
			name:    "unknown dialect",
			mutate:  func(c *AppConfig) { c.Models["m"] = ModelConfig{Preset: "vicuna", Dialect: "grpc"} },
			wantErr: "models[m].dialect",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *AppConfig) { c.Models["m"] = ModelConfig{Preset: "vicuna", Temperature: &bad} },
			wantErr: "models[m].temperature",
		},
		{
			name:    "bad base url",
			mutate:  func(c *AppConfig) { c.Models["m"] = ModelConfig{Preset: "vicuna", BaseURL: "not a url"} },
			wantErr: "models[m].base_url",
		},
		{
			name:    "unknown default model",
			mutate:  func(c *AppConfig) { c.DefaultModels = []string{"missing"} },
			wantErr: "default_models",
		},
		{
			name:    "bad server port",
			mutate:  func(c *AppConfig) { c.Server.Port = -1 },
			wantErr: "server.port",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Models: map[string]ModelConfig{"openai": {}}}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("PRESET_KEY", "from-preset")
	t.Setenv("CUSTOM_KEY", "from-custom")

	assert.Equal(t, "inline", ModelConfig{APIKey: "inline", APIKeyEnv: "CUSTOM_KEY"}.ResolveAPIKey("PRESET_KEY"))
	assert.Equal(t, "from-custom", ModelConfig{APIKeyEnv: "CUSTOM_KEY"}.ResolveAPIKey("PRESET_KEY"))
	assert.Equal(t, "from-preset", ModelConfig{}.ResolveAPIKey("PRESET_KEY"))
	assert.Empty(t, ModelConfig{}.ResolveAPIKey(""))
}

func TestModelConfigStringHidesKey(t *testing.T) {
	s := ModelConfig{Preset: "openai", APIKey: "sk-secret"}.String()
	assert.NotContains(t, s, "sk-secret")
	assert.Contains(t, s, "api_key=sk-***")
}
