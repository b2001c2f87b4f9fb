package models

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/tokenizer"
)

// Info describes a built model.
type Info struct {
	Name    string `json:"name" yaml:"name"`
	Preset  string `json:"preset" yaml:"preset"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Backend string `json:"backend" yaml:"backend"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Stream  bool   `json:"stream,omitempty" yaml:"stream,omitempty"`
}

// requestFunc turns resolved params and caller text into a backend request.
type requestFunc func(p Params, text string) (llm.CompletionRequest, error)

// base carries what every model kind shares: the backend, the resolved
// defaults and the per-call bookkeeping.
type base struct {
	info     Info
	defaults Params
	backend  *backend
	log      *logger.Logger
	metrics  *observability.Metrics
	counter  func() *tokenizer.Counter
}

func newBase(r *resolved, b *backend, deps Deps) *base {
	log := deps.Logger
	if log == nil {
		log = logger.Get("models")
	}
	model := r.model
	return &base{
		info: Info{
			Name:    r.name,
			Preset:  r.preset.Name,
			Kind:    r.preset.Kind,
			Backend: r.backend,
			Model:   r.model,
			BaseURL: r.baseURL,
			Stream:  r.stream,
		},
		defaults: withStream(r.params, r.stream),
		backend:  b,
		log:      log.WithComponent("models"),
		metrics:  deps.Metrics,
		counter:  sync.OnceValue(func() *tokenizer.Counter { return tokenizer.ForModel(model) }),
	}
}

func withStream(p Params, on bool) Params {
	p.Stream = p.Stream || on
	return p
}

// Name returns the configured model name.
func (m *base) Name() string { return m.info.Name }

// Info describes the model.
func (m *base) Info() Info { return m.info }

// Defaults returns the parameters used when the caller passes no options.
func (m *base) Defaults() Params { return m.defaults }

// IsAvailable checks the backend.
func (m *base) IsAvailable(ctx context.Context) bool { return m.backend.exec.IsAvailable(ctx) }

// Close releases the backend's connections.
func (m *base) Close(ctx context.Context) error { return m.backend.Close(ctx) }

func (m *base) generate(ctx context.Context, text string, opts []Option, build requestFunc) (_ string, err error) {
	if strings.TrimSpace(text) == "" {
		return "", apperrors.InvalidInput("text", "must not be empty")
	}
	p := Resolve(m.defaults, opts...)
	ctx = m.withRequestID(ctx)
	ctx, span := observability.StartSpan(ctx, observability.SpanGenerate,
		observability.AttrModel.String(m.info.Model),
		observability.AttrPreset.String(m.info.Preset),
		observability.AttrDialect.String(m.info.Backend),
		observability.AttrRequestID.String(logger.RequestIDFromContext(ctx)),
	)
	defer func() { observability.EndSpan(span, err) }()

	req, err := build(p, text)
	if err != nil {
		return "", m.fail(ctx, err)
	}

	start := time.Now()
	var (
		out   string
		usage llm.Usage
	)
	if p.Stream && m.backend.stream != nil {
		out, err = m.collect(ctx, req)
	} else {
		var resp llm.CompletionResponse
		resp, err = m.backend.exec.Execute(ctx, req)
		out, usage = resp.Content, resp.Usage
	}
	if err == nil && strings.TrimSpace(out) == "" {
		err = llm.ErrEmptyResponse
	}
	elapsed := time.Since(start)
	if err != nil {
		return "", m.fail(ctx, err)
	}

	m.log.WithContext(ctx).Debug("generated", logger.Fields(
		"preset", m.info.Preset,
		logger.FieldProvider, m.info.Backend,
		logger.FieldDuration, elapsed.Milliseconds(),
		"chars", len(out),
	))
	m.recordTokens(ctx, req, out, usage)
	return out, nil
}

func (m *base) collect(ctx context.Context, req llm.CompletionRequest) (string, error) {
	ch, err := m.backend.stream.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	return llm.Collect(ctx, ch)
}

func (m *base) generateStream(ctx context.Context, text string, opts []Option, build requestFunc) (<-chan llm.StreamChunk, error) {
	if m.backend.stream == nil {
		return nil, apperrors.InvalidInput("stream", "backend "+m.info.Backend+" does not stream")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.InvalidInput("text", "must not be empty")
	}
	ctx = m.withRequestID(ctx)
	req, err := build(Resolve(m.defaults, opts...), text)
	if err != nil {
		return nil, m.fail(ctx, err)
	}
	ch, err := m.backend.stream.Stream(ctx, req)
	if err != nil {
		return nil, m.fail(ctx, err)
	}
	return ch, nil
}

func (m *base) withRequestID(ctx context.Context) context.Context {
	if logger.RequestIDFromContext(ctx) == "" {
		ctx = logger.ContextWithRequestID(ctx, uuid.NewString())
	}
	return logger.ContextWithModel(ctx, m.info.Name)
}

func (m *base) fail(ctx context.Context, err error) error {
	mapped := mapError(m.info.Name, err)
	m.log.WithContext(ctx).Debug("generation failed", logger.MergeWithError(logger.Fields(
		"preset", m.info.Preset,
		logger.FieldProvider, m.info.Backend,
	), err))
	return mapped
}

// recordTokens falls back to local counts when the backend reports no usage.
func (m *base) recordTokens(ctx context.Context, req llm.CompletionRequest, out string, usage llm.Usage) {
	if usage.PromptTokens > 0 || usage.CompletionTokens > 0 {
		observability.Annotate(ctx,
			observability.AttrPromptTokens.Int(usage.PromptTokens),
			observability.AttrCompletionTokens.Int(usage.CompletionTokens),
		)
	}
	if m.metrics == nil {
		return
	}
	promptTokens, completionTokens := usage.PromptTokens, usage.CompletionTokens
	if promptTokens == 0 && completionTokens == 0 {
		c := m.counter()
		promptTokens = c.Count(req.SystemPrompt) + c.Count(req.Text())
		completionTokens = c.Count(out)
	}
	m.metrics.RecordTokens(ctx, m.info.Model, promptTokens, completionTokens)
}

// applySampling copies the numeric params into req.
func applySampling(req *llm.CompletionRequest, p Params) {
	req.Temperature = p.Temperature
	req.TopP = p.TopP
	req.TopK = p.TopK
	req.MaxTokens = p.MaxNewTokens
	req.RepetitionPenalty = p.RepetitionPenalty
}
