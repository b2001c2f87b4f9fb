package models

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/modelkit/config"
	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/llm/anthropic"
	"github.com/kbukum/modelkit/llm/openaisdk"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/provider"
	"github.com/kbukum/modelkit/resilience"
	"github.com/kbukum/modelkit/security"
	"github.com/kbukum/modelkit/util"

	// Wire dialects register themselves with llm.
	_ "github.com/kbukum/modelkit/llm/dialect/gemini"
	_ "github.com/kbukum/modelkit/llm/dialect/llamacpp"
	_ "github.com/kbukum/modelkit/llm/dialect/ollama"
	_ "github.com/kbukum/modelkit/llm/dialect/openai"
	_ "github.com/kbukum/modelkit/llm/dialect/tgi"
)

const defaultTimeout = 120 * time.Second

// Deps are shared collaborators handed to every factory.
type Deps struct {
	Logger *logger.Logger
	// Metrics, when set, records per-backend call metrics.
	Metrics *observability.Metrics
	// Tracing wraps backend calls in spans named after ServiceName.
	Tracing     bool
	ServiceName string
}

// Spec is what a Factory receives: the model's name, its configuration
// and the shared dependencies.
type Spec struct {
	Name   string
	Config config.ModelConfig
	Deps   Deps
}

// Factory builds a Model from a Spec.
type Factory = provider.Factory[Model, Spec]

// resolved holds a preset merged with a model config.
type resolved struct {
	name       string
	preset     Preset
	backend    string
	model      string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	skipVerify bool
	stream     bool
	maxLength  int
	params     Params
}

func resolve(p Preset, spec Spec) (*resolved, error) {
	cfg := spec.Config
	r := &resolved{
		name:       spec.Name,
		preset:     p,
		backend:    p.Backend,
		model:      p.Model,
		baseURL:    p.BaseURL,
		timeout:    cfg.Timeout,
		skipVerify: p.SkipVerify || cfg.SkipVerify,
		stream:     cfg.Stream,
		maxLength:  p.MaxLength,
		params:     p.Defaults,
	}
	if r.name == "" {
		r.name = p.Name
	}
	if cfg.Dialect != "" && cfg.Dialect != p.Backend {
		r.backend = cfg.Dialect
		r.baseURL = defaultBaseURLs[cfg.Dialect]
	}
	if r.baseURL == "" {
		r.baseURL = defaultBaseURLs[r.backend]
	}
	r.baseURL = util.Coalesce(cfg.BaseURL, r.baseURL)
	r.model = util.Coalesce(cfg.Model, r.model)
	if r.model == "" {
		return nil, apperrors.InvalidInput("model", fmt.Sprintf("preset %s requires a model id", p.Name))
	}
	if r.timeout == 0 {
		r.timeout = defaultTimeout
	}
	if cfg.MaxLength > 0 {
		r.maxLength = cfg.MaxLength
	}

	r.apiKey = cfg.ResolveAPIKey(p.APIKeyEnv)
	if p.RequireAPIKey && r.apiKey == "" {
		return nil, apperrors.MissingField("api_key").
			WithDetails(map[string]any{"model": r.name, "env": p.APIKeyEnv})
	}

	if cfg.System != nil {
		r.params.System, r.params.SystemSet = *cfg.System, true
	}
	r.params.Temperature = util.Deref(util.FirstSet(cfg.Temperature, &r.params.Temperature))
	r.params.TopP = util.Deref(util.FirstSet(cfg.TopP, &r.params.TopP))
	r.params.TopK = util.Deref(util.FirstSet(cfg.TopK, &r.params.TopK))
	r.params.MaxNewTokens = util.Deref(util.FirstSet(cfg.MaxNewTokens, &r.params.MaxNewTokens))
	r.params.RepetitionPenalty = util.Deref(util.FirstSet(cfg.RepetitionPenalty, &r.params.RepetitionPenalty))
	return r, nil
}

// backend is the request/response path used by Generate plus an optional
// streaming path. Streams bypass retry.
type backend struct {
	name   string
	exec   llm.Provider
	stream llm.StreamProvider
	closer provider.Closeable
}

func (b *backend) Close(ctx context.Context) error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close(ctx)
}

// rateLimitRetry returns the 429 policy: preset retries unless the config
// sets MaxRetries, waiting RetryWait (default 12s) between attempts.
func rateLimitRetry(p Preset, cfg config.ModelConfig) *resilience.RetryConfig {
	retries := p.RateLimitRetries
	if cfg.MaxRetries > 0 {
		retries = cfg.MaxRetries
	}
	if retries <= 0 {
		return nil
	}
	wait := util.Coalesce(cfg.RetryWait, p.RetryWait, DefaultRetryWait)
	return httpclient.RateLimitRetryConfig(retries+1, wait)
}

func buildBackend(r *resolved, spec Spec) (*backend, error) {
	cfg := spec.Config
	var tlsCfg *security.TLSConfig
	if r.skipVerify {
		tlsCfg = &security.TLSConfig{SkipVerify: true}
	}

	res := provider.ResilienceConfig{Retry: rateLimitRetry(r.preset, cfg)}
	if cfg.RateLimit > 0 {
		res.RateLimiter = &resilience.RateLimiterConfig{Name: r.name, Rate: cfg.RateLimit, Burst: 1}
	}
	if cfg.MaxConcurrent > 0 {
		res.Bulkhead = &resilience.BulkheadConfig{Name: r.name, MaxConcurrent: cfg.MaxConcurrent, MaxWait: r.timeout}
	}
	res.CircuitBreaker = circuitBreaker(r.name, cfg, spec.Deps.Logger)

	b := &backend{name: r.backend}
	switch r.backend {
	case BackendAnthropic:
		p, err := anthropic.New(anthropic.Config{
			Name:    r.name,
			APIKey:  r.apiKey,
			BaseURL: r.baseURL,
			Model:   r.model,
			Timeout: r.timeout,
			TLS:     tlsCfg,
			Headers: cfg.Headers,
		})
		if err != nil {
			return nil, err
		}
		b.exec = provider.WithResilience[llm.CompletionRequest, llm.CompletionResponse](p, res)
		b.closer = p

	case BackendOpenAISDK:
		p, err := openaisdk.New(openaisdk.Config{
			Name:    r.name,
			APIKey:  r.apiKey,
			BaseURL: r.baseURL,
			Model:   r.model,
			Timeout: r.timeout,
			TLS:     tlsCfg,
		})
		if err != nil {
			return nil, err
		}
		b.exec = provider.WithResilience[llm.CompletionRequest, llm.CompletionResponse](p, res)
		b.stream = p
		b.closer = p

	default:
		var auth *httpclient.AuthConfig
		switch {
		case r.apiKey == "":
		case r.backend == "gemini":
			auth = httpclient.APIKeyAuthQuery(r.apiKey, "key")
		default:
			auth = httpclient.BearerAuth(r.apiKey)
		}
		a, err := llm.New(llm.Config{
			Name:           r.name,
			Dialect:        r.backend,
			BaseURL:        r.baseURL,
			Model:          r.model,
			Timeout:        r.timeout,
			Auth:           auth,
			TLS:            tlsCfg,
			Headers:        cfg.Headers,
			Retry:          res.Retry,
			RateLimiter:    res.RateLimiter,
			CircuitBreaker: res.CircuitBreaker,
		})
		if err != nil {
			return nil, err
		}
		b.exec = provider.WithResilience[llm.CompletionRequest, llm.CompletionResponse](a,
			provider.ResilienceConfig{Bulkhead: res.Bulkhead})
		b.stream = a
		b.closer = a
	}

	b.exec = instrument(b.exec, spec.Deps)
	return b, nil
}

// circuitBreaker is nil unless cfg.BreakerFailures is set. Only backend
// failures count, so rejected prompts never open the circuit.
func circuitBreaker(name string, cfg config.ModelConfig, log *logger.Logger) *resilience.CircuitBreakerConfig {
	if cfg.BreakerFailures <= 0 {
		return nil
	}
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.MaxFailures = cfg.BreakerFailures
	cb.Cooldown = util.Coalesce(cfg.BreakerCooldown, cb.Cooldown)
	cb.IsFailure = httpclient.IsBackendFailure
	if log != nil {
		cb.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("circuit state changed", logger.Fields(logger.FieldModel, name, "from", from.String(), "to", to.String()))
		}
	}
	return &cb
}

func instrument(p llm.Provider, d Deps) llm.Provider {
	var mws []provider.Middleware[llm.CompletionRequest, llm.CompletionResponse]
	if d.Logger != nil {
		mws = append(mws, provider.WithLogging[llm.CompletionRequest, llm.CompletionResponse](d.Logger))
	}
	if d.Tracing {
		mws = append(mws, provider.WithTracing[llm.CompletionRequest, llm.CompletionResponse](d.ServiceName))
	}
	if d.Metrics != nil {
		mws = append(mws, provider.WithMetrics[llm.CompletionRequest, llm.CompletionResponse](d.Metrics))
	}
	if len(mws) == 0 {
		return p
	}
	return provider.Chain(mws...)(p)
}
