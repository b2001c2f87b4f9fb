// Package anthropic implements llm.Provider on the Anthropic Messages API
// using the official SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/security"
)

const (
	// ProviderName is the default provider name.
	ProviderName = "anthropic"

	// APIKeyEnv is read when Config.APIKey is empty.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 1024
	defaultTimeout   = 120 * time.Second
)

// ErrNoAPIKey is returned when neither Config.APIKey nor ANTHROPIC_API_KEY is set.
var ErrNoAPIKey = errors.New("anthropic: ANTHROPIC_API_KEY not set and no API key provided")

// Config configures a Provider.
type Config struct {
	Name    string `yaml:"name" json:"name"`
	APIKey  string `yaml:"-" json:"-"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
	// MaxTokens is required by the Messages API. Defaults to 1024.
	MaxTokens   int                 `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64             `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration       `yaml:"timeout" json:"timeout"`
	TLS         *security.TLSConfig `yaml:"tls" json:"tls"`
	Headers     map[string]string   `yaml:"headers" json:"headers"`
	// MaxRetries is the SDK's own retry budget for 429 and 5xx. Zero disables it.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// Provider implements llm.Provider.
type Provider struct {
	name      string
	client    anthropic.Client
	transport *httpclient.Client
	model     string
	maxTokens int
	temp      float64
}

var _ llm.Provider = (*Provider)(nil)

// New creates a Provider. The SDK shares the transport built by httpclient,
// so TLS and timeout settings match the dialect adapters.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv)
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Name == "" {
		cfg.Name = ProviderName
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	transport, err := httpclient.New(httpclient.Config{
		Name:    cfg.Name,
		Timeout: cfg.Timeout,
		TLS:     cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: create transport: %w", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(transport.Unwrap()),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &Provider{
		name:      cfg.Name,
		client:    anthropic.NewClient(opts...),
		transport: transport,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		temp:      cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// IsAvailable reports true; the Messages API has no unauthenticated health endpoint.
func (p *Provider) IsAvailable(_ context.Context) bool { return true }

// Close releases idle connections.
func (p *Provider) Close(ctx context.Context) error { return p.transport.Close(ctx) }

// Model returns the default model id.
func (p *Provider) Model() string { return p.model }

// Execute sends req to the Messages API. Text blocks of the reply are
// concatenated.
func (p *Provider) Execute(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("anthropic: completion failed: %w", classify(err))
	}

	var content string
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += variant.Text
		}
	}

	return llm.CompletionResponse{
		Content:      content,
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		Usage: llm.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func (p *Provider) buildParams(req llm.CompletionRequest) (anthropic.MessageNewParams, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var msgs []anthropic.MessageParam
	for _, m := range req.ChatMessages() {
		switch m.Role {
		case llm.RoleSystem:
			continue
		case llm.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(msgs) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic: request has no messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	temp := p.temp
	if req.Temperature != 0 {
		temp = req.Temperature
	}
	if temp != 0 {
		params.Temperature = anthropic.Float(temp)
	}
	if req.TopP != 0 {
		params.TopP = anthropic.Float(req.TopP)
	}
	if req.TopK != 0 {
		params.TopK = anthropic.Int(int64(req.TopK))
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}
	return params, nil
}

// classify maps SDK API errors to *httpclient.Error so callers see one
// error shape for every backend.
func classify(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	e := httpclient.ClassifyStatusCode(apiErr.StatusCode, []byte(apiErr.RawJSON()))
	if e == nil {
		return err
	}
	e.Err = err
	return e
}
