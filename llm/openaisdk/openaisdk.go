// Package openaisdk implements llm.Provider and llm.StreamProvider on top of
// github.com/sashabaranov/go-openai. BaseURL may point at any
// OpenAI-compatible server.
package openaisdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/security"
)

const (
	// ProviderName is the default provider name.
	ProviderName = "openai"

	// APIKeyEnv is read when Config.APIKey is empty.
	APIKeyEnv = "OPENAI_API_KEY"

	defaultModel   = openai.GPT3Dot5Turbo
	defaultTimeout = 120 * time.Second
)

// ErrNoAPIKey is returned when neither Config.APIKey nor OPENAI_API_KEY is set.
var ErrNoAPIKey = errors.New("openaisdk: OPENAI_API_KEY not set and no API key provided")

// ErrNoChoices is returned when the API answers without choices.
var ErrNoChoices = errors.New("openaisdk: response has no choices")

// Config configures a Provider.
type Config struct {
	Name        string              `yaml:"name" json:"name"`
	APIKey      string              `yaml:"-" json:"-"`
	BaseURL     string              `yaml:"base_url" json:"base_url"`
	Model       string              `yaml:"model" json:"model"`
	Temperature float64             `yaml:"temperature" json:"temperature"`
	MaxTokens   int                 `yaml:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration       `yaml:"timeout" json:"timeout"`
	TLS         *security.TLSConfig `yaml:"tls" json:"tls"`
}

// Provider implements llm.Provider and llm.StreamProvider.
type Provider struct {
	name      string
	client    *openai.Client
	transport *httpclient.Client
	model     string
	temp      float64
	maxTokens int
}

var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.StreamProvider = (*Provider)(nil)
)

// New creates a Provider.
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
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	transport, err := httpclient.New(httpclient.Config{
		Name:    cfg.Name,
		Timeout: cfg.Timeout,
		TLS:     cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("openaisdk: create transport: %w", err)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = transport.Unwrap()

	return &Provider{
		name:      cfg.Name,
		client:    openai.NewClientWithConfig(clientCfg),
		transport: transport,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// IsAvailable lists models as a credentialed liveness check.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Close releases idle connections.
func (p *Provider) Close(ctx context.Context) error { return p.transport.Close(ctx) }

// Model returns the default model id.
func (p *Provider) Model() string { return p.model }

// Execute calls CreateChatCompletion and returns the first choice.
func (p *Provider) Execute(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	apiReq, err := p.buildRequest(req)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("openaisdk: completion failed: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, ErrNoChoices
	}

	return llm.CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream calls CreateChatCompletionStream and forwards delta content.
func (p *Provider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	apiReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}
	apiReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("openaisdk: stream failed: %w", classify(err))
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				sendChunk(ctx, ch, llm.StreamChunk{Done: true})
				return
			}
			if err != nil {
				sendChunk(ctx, ch, llm.StreamChunk{Err: classify(err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !sendChunk(ctx, ch, llm.StreamChunk{Content: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()
	return ch, nil
}

func sendChunk(ctx context.Context, ch chan<- llm.StreamChunk, chunk llm.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Provider) buildRequest(req llm.CompletionRequest) (openai.ChatCompletionRequest, error) {
	msgs := req.ChatMessages()
	if len(msgs) == 0 {
		return openai.ChatCompletionRequest{}, fmt.Errorf("openaisdk: request has no messages")
	}
	apiMsgs := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		apiMsgs = append(apiMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	temp := p.temp
	if req.Temperature != 0 {
		temp = req.Temperature
	}
	maxTokens := p.maxTokens
	if req.MaxTokens != 0 {
		maxTokens = req.MaxTokens
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    apiMsgs,
		Temperature: float32(temp),
		TopP:        float32(req.TopP),
		MaxTokens:   maxTokens,
		N:           req.Candidates,
		Stop:        req.Stop,
	}, nil
}

// classify maps go-openai errors to *httpclient.Error so the 429 retry
// policy and error mapping apply uniformly.
func classify(err error) error {
	var status int
	var body []byte
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		body = []byte(apiErr.Message)
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		body = reqErr.Body
	default:
		return err
	}
	e := httpclient.ClassifyStatusCode(status, body)
	if e == nil {
		return err
	}
	e.Err = err
	return e
}
