package models

import (
	"context"
	"fmt"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/prompt"
)

// LocalModel renders a prompt template and sends the raw text to a
// completion server.
type LocalModel struct {
	*base
	template  *prompt.Template
	maxLength int
}

// Generate renders text with the model's template and returns the completion.
func (m *LocalModel) Generate(ctx context.Context, text string, opts ...Option) (string, error) {
	return m.generate(ctx, text, opts, m.request)
}

// GenerateStream streams the completion of text.
func (m *LocalModel) GenerateStream(ctx context.Context, text string, opts ...Option) (<-chan llm.StreamChunk, error) {
	return m.generateStream(ctx, text, opts, m.request)
}

// Render returns the prompt Generate would send for text.
func (m *LocalModel) Render(text string, opts ...Option) (string, error) {
	return m.render(Resolve(m.defaults, opts...), text)
}

func (m *LocalModel) render(p Params, text string) (string, error) {
	out, err := m.template.Render(prompt.Input{
		System:    p.System,
		SystemSet: p.SystemSet,
		Text:      text,
		History:   p.History,
	})
	if err != nil {
		return "", apperrors.InvalidInput("template", err.Error()).WithCause(err)
	}
	return out, nil
}

// Template returns the prompt template.
func (m *LocalModel) Template() *prompt.Template { return m.template }

// DefaultMaxNewTokens caps the completion of a max-length preset that sets
// no max_new_tokens. Many TGI deployments reject max_new_tokens close to
// their max_total_tokens.
const DefaultMaxNewTokens = 512

func (m *LocalModel) request(p Params, text string) (llm.CompletionRequest, error) {
	rendered, err := m.render(p, text)
	if err != nil {
		return llm.CompletionRequest{}, err
	}

	maxNew := p.MaxNewTokens
	if m.maxLength > 0 {
		if maxNew <= 0 {
			maxNew = DefaultMaxNewTokens
		}
		n, err := m.counter().Budget(rendered, m.maxLength, maxNew)
		if err != nil {
			return llm.CompletionRequest{}, apperrors.InvalidInput("text", err.Error())
		}
		maxNew = n
	}

	req := llm.CompletionRequest{Model: m.info.Model, Prompt: rendered}
	applySampling(&req, p)
	req.MaxTokens = maxNew
	return req, nil
}

// ChatModel sends the system prompt, earlier turns and the user text to a
// chat-completion API.
type ChatModel struct {
	*base
}

// Generate returns the assistant reply to text.
func (m *ChatModel) Generate(ctx context.Context, text string, opts ...Option) (string, error) {
	return m.generate(ctx, text, opts, m.request)
}

// GenerateStream streams the assistant reply to text.
func (m *ChatModel) GenerateStream(ctx context.Context, text string, opts ...Option) (<-chan llm.StreamChunk, error) {
	return m.generateStream(ctx, text, opts, m.request)
}

func (m *ChatModel) request(p Params, text string) (llm.CompletionRequest, error) {
	msgs := make([]llm.Message, 0, 2*len(p.History)+1)
	for _, t := range p.History {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: t.User},
			llm.Message{Role: llm.RoleAssistant, Content: t.Assistant})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: text})

	req := llm.CompletionRequest{Model: m.info.Model, SystemPrompt: p.System, Messages: msgs}
	applySampling(&req, p)
	return req, nil
}

// GeminiModel sends a single prompt with the preset's generation config and
// returns every candidate joined by newlines.
type GeminiModel struct {
	*base
	candidates int
}

// Generate returns the joined candidates for text.
func (m *GeminiModel) Generate(ctx context.Context, text string, opts ...Option) (string, error) {
	return m.generate(ctx, text, opts, m.request)
}

func (m *GeminiModel) request(p Params, text string) (llm.CompletionRequest, error) {
	req := llm.CompletionRequest{
		Model:        m.info.Model,
		Prompt:       text,
		SystemPrompt: p.System,
		Candidates:   m.candidates,
	}
	applySampling(&req, p)
	return req, nil
}

// newModel merges p with spec and builds the model of p's kind.
func newModel(p Preset, spec Spec) (Model, error) {
	r, err := resolve(p, spec)
	if err != nil {
		return nil, err
	}
	b, err := buildBackend(r, spec)
	if err != nil {
		return nil, fmt.Errorf("models: %s: %w", r.name, err)
	}
	core := newBase(r, b, spec.Deps)

	switch p.Kind {
	case KindLocal:
		tmpl, err := prompt.Get(p.Template)
		if err != nil {
			_ = b.Close(context.Background())
			return nil, fmt.Errorf("models: %s: %w", r.name, err)
		}
		return &LocalModel{base: core, template: tmpl, maxLength: r.maxLength}, nil
	case KindGemini:
		return &GeminiModel{base: core, candidates: p.Candidates}, nil
	case KindChat, "":
		return &ChatModel{base: core}, nil
	default:
		_ = b.Close(context.Background())
		return nil, fmt.Errorf("models: %s: unknown kind %q", r.name, p.Kind)
	}
}
