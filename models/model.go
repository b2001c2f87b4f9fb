// Package models is the catalog of text-generation backends. Every entry,
// whether a locally served open-weights chat model or a hosted API, answers
// the same call:
//
//	text, err := m.Generate(ctx, "What is the capital of France?",
//		models.WithTemperature(0.2))
//
// Presets carry each family's prompt template and sampling defaults;
// caller options override them per call.
package models

import (
	"context"

	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/prompt"
)

// Model generates one text completion per call. Implementations are safe
// for concurrent use and keep no state between calls.
type Model interface {
	// Name returns the configured model name.
	Name() string
	// IsAvailable reports whether the backend currently accepts requests.
	IsAvailable(ctx context.Context) bool
	// Generate returns the completion for text.
	Generate(ctx context.Context, text string, opts ...Option) (string, error)
}

// Streamer is implemented by models that can deliver a completion
// incrementally.
type Streamer interface {
	GenerateStream(ctx context.Context, text string, opts ...Option) (<-chan llm.StreamChunk, error)
}

// Params are the resolved parameters of one Generate call. Zero numeric
// values leave the choice to the backend.
type Params struct {
	System            string        `json:"system,omitempty" yaml:"system,omitempty"`
	Temperature       float64       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP              float64       `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	TopK              int           `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	MaxNewTokens      int           `json:"max_new_tokens,omitempty" yaml:"max_new_tokens,omitempty"`
	RepetitionPenalty float64       `json:"repetition_penalty,omitempty" yaml:"repetition_penalty,omitempty"`
	History           []prompt.Turn `json:"history,omitempty" yaml:"-"`
	Stream            bool          `json:"stream,omitempty" yaml:"stream,omitempty"`

	// SystemSet records a caller's WithSystem, so local templates keep an
	// explicitly empty system prompt instead of their default.
	SystemSet bool `json:"-" yaml:"-"`
}

// Option overrides one parameter for a single call.
type Option func(*Params)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option { return func(p *Params) { p.Temperature = t } }

// WithTopP sets nucleus sampling probability.
func WithTopP(v float64) Option { return func(p *Params) { p.TopP = v } }

// WithTopK sets top-k sampling.
func WithTopK(k int) Option { return func(p *Params) { p.TopK = k } }

// WithSystem replaces the system prompt. An empty s sends no system prompt.
func WithSystem(s string) Option {
	return func(p *Params) { p.System, p.SystemSet = s, true }
}

// WithMaxNewTokens caps the completion length.
func WithMaxNewTokens(n int) Option { return func(p *Params) { p.MaxNewTokens = n } }

// WithRepetitionPenalty sets the repetition penalty of local backends.
func WithRepetitionPenalty(r float64) Option { return func(p *Params) { p.RepetitionPenalty = r } }

// WithHistory supplies earlier turns of the conversation.
func WithHistory(turns ...prompt.Turn) Option {
	return func(p *Params) { p.History = append([]prompt.Turn(nil), turns...) }
}

// WithStream asks the backend to stream; Generate still returns the whole text.
func WithStream(on bool) Option { return func(p *Params) { p.Stream = on } }

// Resolve applies opts on top of defaults.
func Resolve(defaults Params, opts ...Option) Params {
	p := defaults
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}
