package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/modelkit/config"
	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/prompt"
	"github.com/kbukum/modelkit/util"
)

func presetByName(t *testing.T, name string) Preset {
	t.Helper()
	for _, p := range builtinPresets() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("preset %q not found", name)
	return Preset{}
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	ae, ok := apperrors.AsAppError(err)
	require.True(t, ok, "want AppError, got %T: %v", err, err)
	assert.Equal(t, code, ae.Code)
}

// tgiServer answers /generate with reply and records the last request.
func tgiServer(t *testing.T, reply string, last *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/generate":
			if last != nil {
				_ = json.NewDecoder(r.Body).Decode(last)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"generated_text":%q}`, reply)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// chatServer answers /chat/completions with reply after failing the first
// `limited` calls with 429.
func chatServer(t *testing.T, reply string, limited int32, calls *atomic.Int32, last *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			fmt.Fprint(w, `{"data":[]}`)
		case "/chat/completions":
			n := calls.Add(1)
			if n <= limited {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
				return
			}
			if last != nil {
				_ = json.NewDecoder(r.Body).Decode(last)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"model":"m","choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`, reply)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuiltinPresets(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range builtinPresets() {
		assert.False(t, seen[p.Name], "duplicate preset %s", p.Name)
		seen[p.Name] = true
		if p.Kind == KindLocal {
			_, err := prompt.Get(p.Template)
			assert.NoError(t, err, "preset %s template", p.Name)
		}
		if !p.RequireModel {
			assert.NotEmpty(t, p.Model, "preset %s model", p.Name)
		}
	}

	qwen := presetByName(t, "groq-qwen")
	assert.Equal(t, 5, qwen.RateLimitRetries)
	assert.Equal(t, 12*time.Second, qwen.RetryWait)
	assert.Equal(t, 0.95, qwen.Defaults.TopP)
	assert.Equal(t, 128, qwen.Defaults.MaxNewTokens)
	assert.Equal(t, RemoteSystem, qwen.Defaults.System)

	g := presetByName(t, "gemini")
	assert.Equal(t, 5, g.Candidates)
	assert.Equal(t, 5, g.Defaults.TopK)
	assert.Equal(t, 500, g.Defaults.MaxNewTokens)

	assert.Equal(t, 4096, presetByName(t, "chatglm").MaxLength)
	assert.Equal(t, 1.02, presetByName(t, "moss").Defaults.RepetitionPenalty)
	assert.True(t, presetByName(t, "vicuna").RequireModel)
	assert.Equal(t, prompt.Llama2, presetByName(t, "mistral").Template)
}

func TestResolve_RequiresModel(t *testing.T) {
	_, err := resolve(presetByName(t, "vicuna"), Spec{Config: config.ModelConfig{}})
	requireCode(t, err, apperrors.ErrCodeInvalidInput)

	r, err := resolve(presetByName(t, "vicuna"), Spec{Config: config.ModelConfig{Model: "lmsys/vicuna-7b-v1.5"}})
	require.NoError(t, err)
	assert.Equal(t, "lmsys/vicuna-7b-v1.5", r.model)
	assert.Equal(t, "http://localhost:8080", r.baseURL)
}

func TestResolve_RequiresAPIKey(t *testing.T) {
	t.Setenv("SAMBANOVA_API_KEY", "")
	_, err := resolve(presetByName(t, "sambanova-qwen"), Spec{})
	requireCode(t, err, apperrors.ErrCodeMissingField)

	t.Setenv("SAMBANOVA_API_KEY", "sn-key")
	r, err := resolve(presetByName(t, "sambanova-qwen"), Spec{})
	require.NoError(t, err)
	assert.Equal(t, "sn-key", r.apiKey)
	assert.True(t, r.skipVerify)
}

func TestResolve_Overrides(t *testing.T) {
	r, err := resolve(presetByName(t, "qwen2"), Spec{
		Name: "local-qwen",
		Config: config.ModelConfig{
			Dialect:      "ollama",
			Model:        "qwen:7b",
			Temperature:  util.Ptr(0.0),
			MaxNewTokens: util.Ptr(64),
			System:       util.Ptr("be brief"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "local-qwen", r.name)
	assert.Equal(t, "ollama", r.backend)
	assert.Equal(t, "http://localhost:11434", r.baseURL)
	assert.Equal(t, 0.0, r.params.Temperature)
	assert.Equal(t, 0.8, r.params.TopP)
	assert.Equal(t, 64, r.params.MaxNewTokens)
	assert.Equal(t, "be brief", r.params.System)
	assert.Equal(t, defaultTimeout, r.timeout)
}

func TestRateLimitRetry(t *testing.T) {
	assert.Nil(t, rateLimitRetry(presetByName(t, "groq-llama3"), config.ModelConfig{}))

	rc := rateLimitRetry(presetByName(t, "groq-qwen"), config.ModelConfig{})
	require.NotNil(t, rc)
	assert.Equal(t, 6, rc.MaxAttempts)
	assert.Equal(t, 12*time.Second, rc.InitialBackoff)

	rc = rateLimitRetry(presetByName(t, "groq-llama3"), config.ModelConfig{MaxRetries: 2, RetryWait: time.Second})
	require.NotNil(t, rc)
	assert.Equal(t, 3, rc.MaxAttempts)
	assert.Equal(t, time.Second, rc.InitialBackoff)
}

func TestLocalModel_Generate(t *testing.T) {
	var body map[string]any
	srv := tgiServer(t, "Paris", &body)

	cat := NewCatalog(Deps{})
	m, err := cat.New("vicuna", config.ModelConfig{BaseURL: srv.URL, Model: "lmsys/vicuna-7b-v1.5"})
	require.NoError(t, err)
	defer func() { _ = m.(*LocalModel).Close(context.Background()) }()

	out, err := m.Generate(context.Background(), "What is the capital of France?", WithTemperature(0.2))
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)

	assert.Equal(t, prompt.VicunaSystem+"\n\nUSER: What is the capital of France?\nASSISTANT:", body["inputs"])
	params := body["parameters"].(map[string]any)
	assert.Equal(t, 0.2, params["temperature"])
	assert.Equal(t, 0.8, params["top_p"])
	assert.Equal(t, float64(256), params["max_new_tokens"])
}

func TestLocalModel_Render(t *testing.T) {
	m, err := NewCatalog(Deps{}).New("llama2", config.ModelConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	lm := m.(*LocalModel)

	got, err := lm.Render("hi", WithSystem("sys"))
	require.NoError(t, err)
	assert.Contains(t, got, "[INST]")
	assert.Contains(t, got, "sys")
	assert.Contains(t, got, "hi")

	got, err = lm.Render("hi")
	require.NoError(t, err)
	assert.Contains(t, got, prompt.Llama2System)

	got, err = lm.Render("hi", WithSystem(""))
	require.NoError(t, err)
	assert.Equal(t, "<s>[INST] <<SYS>>\n\n<</SYS>>\n\nhi [/INST]", got)
}

func TestLocalModel_ConfiguredEmptySystem(t *testing.T) {
	var body map[string]any
	srv := tgiServer(t, "ok", &body)
	empty := ""
	m, err := NewCatalog(Deps{}).New("moss", config.ModelConfig{BaseURL: srv.URL, System: &empty})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "<|Human|>: hi<eoh>\n<|MOSS|>:", body["inputs"])
}

func TestLocalModel_TemplateRenderError(t *testing.T) {
	tmpl, err := prompt.Parse("first-turn-echo", "", "{{if .Text}}{{(index .History 0).User}}{{end}}{{.Text}}")
	require.NoError(t, err)
	prompt.Register(tmpl)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/generate" {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"generated_text":"ok"}`)
	}))
	t.Cleanup(srv.Close)

	cat := NewCatalog(Deps{})
	cat.RegisterPreset(Preset{Name: "echo", Kind: KindLocal, Template: tmpl.Name(), Backend: "tgi", Model: "echo"})
	m, err := cat.New("echo", config.ModelConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "hi")
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
	assert.Zero(t, calls.Load())

	out, err := m.Generate(context.Background(), "hi", WithHistory(prompt.Turn{User: "u", Assistant: "a"}))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestLocalModel_PromptTooLong(t *testing.T) {
	srv := tgiServer(t, "unused", nil)
	m, err := NewCatalog(Deps{}).New("chatglm", config.ModelConfig{BaseURL: srv.URL, MaxLength: 8})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), strings.Repeat("token ", 50))
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
}

func TestLocalModel_MaxLengthDefaultCap(t *testing.T) {
	var body map[string]any
	srv := tgiServer(t, "ok", &body)
	maxNew := func() float64 {
		return body["parameters"].(map[string]any)["max_new_tokens"].(float64)
	}

	m, err := NewCatalog(Deps{}).New("chatglm", config.ModelConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultMaxNewTokens), maxNew(), "no preset max_new_tokens")

	_, err = m.Generate(context.Background(), "hello", WithMaxNewTokens(2000))
	require.NoError(t, err)
	assert.Equal(t, float64(2000), maxNew(), "an explicit value fits in max_length")

	short, err := NewCatalog(Deps{}).New("qwen", config.ModelConfig{BaseURL: srv.URL, MaxLength: 100})
	require.NoError(t, err)
	_, err = short.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Less(t, maxNew(), float64(100), "the remaining budget is below the default")
	assert.Positive(t, maxNew())
}

func TestModel_EmptyText(t *testing.T) {
	m, err := NewCatalog(Deps{}).New("qwen", config.ModelConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), "   ")
	requireCode(t, err, apperrors.ErrCodeInvalidInput)
}

func TestModel_EmptyResponse(t *testing.T) {
	srv := tgiServer(t, "  ", nil)
	m, err := NewCatalog(Deps{}).New("qwen", config.ModelConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), "hello")
	requireCode(t, err, apperrors.ErrCodeEmptyResponse)
}

func TestChatModel_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	var body map[string]any
	srv := chatServer(t, "ok", 2, &calls, &body)

	m, err := NewCatalog(Deps{}).New("groq-qwen", config.ModelConfig{
		BaseURL:   srv.URL,
		APIKey:    "gk",
		RetryWait: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), "hi", WithHistory(prompt.Turn{User: "a", Assistant: "b"}))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, RemoteSystem, msgs[0].(map[string]any)["content"])
	assert.Equal(t, "hi", msgs[3].(map[string]any)["content"])
	assert.Equal(t, 0.95, body["top_p"])
	assert.Equal(t, float64(128), body["max_tokens"])
}

func TestChatModel_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, "never", 100, &calls, nil)

	m, err := NewCatalog(Deps{}).New("groq-qwen", config.ModelConfig{
		BaseURL:    srv.URL,
		APIKey:     "gk",
		MaxRetries: 1,
		RetryWait:  time.Millisecond,
	})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "hi")
	requireCode(t, err, apperrors.ErrCodeRateLimited)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatModel_NoRetryWithoutPolicy(t *testing.T) {
	var calls atomic.Int32
	srv := chatServer(t, "never", 100, &calls, nil)

	m, err := NewCatalog(Deps{}).New("groq-llama3", config.ModelConfig{BaseURL: srv.URL, APIKey: "gk"})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "hi")
	requireCode(t, err, apperrors.ErrCodeRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatModel_UpstreamRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad model"}}`)
	}))
	defer srv.Close()

	m, err := NewCatalog(Deps{}).New("groq-llama3", config.ModelConfig{BaseURL: srv.URL, APIKey: "gk"})
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), "hi")
	requireCode(t, err, apperrors.ErrCodeUpstreamRejected)
}

func TestChatModel_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m, err := NewCatalog(Deps{}).New("groq-llama3", config.ModelConfig{
		BaseURL:         srv.URL,
		APIKey:          "gk",
		BreakerFailures: 2,
		BreakerCooldown: time.Hour,
	})
	require.NoError(t, err)

	for range 2 {
		_, err = m.Generate(context.Background(), "hi")
		requireCode(t, err, apperrors.ErrCodeGenerationFailed)
	}
	_, err = m.Generate(context.Background(), "hi")
	requireCode(t, err, apperrors.ErrCodeServiceUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "an open circuit must not reach the backend")
	assert.False(t, m.IsAvailable(context.Background()))
}

func TestGeminiModel_JoinsCandidates(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"one"}]}},{"content":{"parts":[{"text":"two"}]}}]}`)
	}))
	defer srv.Close()

	m, err := NewCatalog(Deps{}).New("gemini", config.ModelConfig{BaseURL: srv.URL, APIKey: "g-key"})
	require.NoError(t, err)
	require.IsType(t, &GeminiModel{}, m)

	out, err := m.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", out)

	gc := body["generationConfig"].(map[string]any)
	assert.Equal(t, float64(5), gc["candidateCount"])
	assert.Equal(t, float64(500), gc["maxOutputTokens"])
	assert.Equal(t, float64(5), gc["topK"])
}

func TestCatalog_Build(t *testing.T) {
	srv := tgiServer(t, "hi", nil)
	var calls atomic.Int32
	chat := chatServer(t, "ok", 0, &calls, nil)

	cfg := &config.AppConfig{Models: map[string]config.ModelConfig{
		"local":  {Preset: "qwen", BaseURL: srv.URL, Priority: 1},
		"remote": {Preset: "groq-llama3", BaseURL: chat.URL, APIKey: "gk", Priority: 5},
	}}
	cat := NewCatalog(Deps{})
	require.NoError(t, cat.Build(cfg))
	defer func() { _ = cat.Close(context.Background()) }()

	assert.Equal(t, []string{"local", "remote"}, cat.Configured())

	m, err := cat.Default(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "remote", m.Name())

	info, err := cat.Describe("local")
	require.NoError(t, err)
	assert.Equal(t, "qwen", info.Preset)
	assert.Equal(t, KindLocal, info.Kind)
	assert.Equal(t, "tgi", info.Backend)

	_, err = cat.Get("missing")
	requireCode(t, err, apperrors.ErrCodeUnknownModel)
}

func TestCatalog_BuildUnknownPreset(t *testing.T) {
	cfg := &config.AppConfig{Models: map[string]config.ModelConfig{"x": {Preset: "nope"}}}
	err := NewCatalog(Deps{}).Build(cfg)
	requireCode(t, err, apperrors.ErrCodeUnknownModel)
}

func TestDefaultOrder(t *testing.T) {
	cfg := &config.AppConfig{Models: map[string]config.ModelConfig{
		"a": {Priority: 1}, "b": {Priority: 3}, "c": {Priority: 1},
	}}
	assert.Equal(t, []string{"b", "a", "c"}, defaultOrder(cfg))

	cfg.DefaultModels = []string{"c"}
	assert.Equal(t, []string{"c"}, defaultOrder(cfg))
}

func TestCatalog_RegisterCustomFactory(t *testing.T) {
	cat := NewCatalog(Deps{})
	cat.Register("echo", func(spec Spec) (Model, error) { return echoModel{name: spec.Name}, nil })
	assert.Contains(t, cat.Names(), "echo")

	m, err := cat.New("echo", config.ModelConfig{})
	require.NoError(t, err)
	out, err := m.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", out)
	assert.Equal(t, Info{Name: "echo"}, Describe(m))
}

type echoModel struct{ name string }

func (e echoModel) Name() string                       { return e.name }
func (e echoModel) IsAvailable(_ context.Context) bool { return true }
func (e echoModel) Generate(_ context.Context, text string, _ ...Option) (string, error) {
	return text, nil
}

func TestResolveOptions(t *testing.T) {
	p := Resolve(Params{Temperature: 0.7, TopP: 0.8}, WithTemperature(0.1), nil, WithTopK(3))
	assert.Equal(t, Params{Temperature: 0.1, TopP: 0.8, TopK: 3}, p)
}
