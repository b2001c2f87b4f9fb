package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/httpclient/rest"
)

var (
	ErrNoDialect    = errors.New("llm: dialect is required")
	ErrNoStreamBody = errors.New("llm: expected stream body but got nil")
)

// Adapter pairs a REST client, which carries TLS, auth and the resilience
// policy, with the Dialect that owns the wire format. It is both a
// Provider and a StreamProvider.
type Adapter struct {
	client   *rest.Client
	dialect  Dialect
	defaults CompletionRequest
}

// New looks cfg.Dialect up in the dialect registry.
func New(cfg Config) (*Adapter, error) {
	d, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return NewWithDialect(d, cfg)
}

// NewWithDialect uses d whether or not it is registered.
func NewWithDialect(d Dialect, cfg Config) (*Adapter, error) {
	if d == nil {
		return nil, ErrNoDialect
	}
	cfg.applyDefaults(d.Name())

	client, err := rest.New(cfg.httpConfig())
	if err != nil {
		return nil, fmt.Errorf("llm: create rest client: %w", err)
	}
	return &Adapter{
		client:  client,
		dialect: d,
		defaults: CompletionRequest{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	}, nil
}

func (a *Adapter) Name() string                    { return a.client.Name() }
func (a *Adapter) Dialect() Dialect                { return a.dialect }
func (a *Adapter) Model() string                   { return a.defaults.Model }
func (a *Adapter) Close(ctx context.Context) error { return a.client.Close(ctx) }

// IsAvailable is false while the circuit is open. Dialects with a health
// endpoint must also answer it.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if !a.client.IsAvailable(ctx) {
		return false
	}
	hp := a.dialect.HealthPath()
	if hp == "" {
		return true
	}
	_, err := rest.Get[json.RawMessage](ctx, a.client, hp)
	return err == nil
}

// Execute sends req and parses the complete answer.
func (a *Adapter) Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	path, body, err := a.prepare(&req, false)
	if err != nil {
		return CompletionResponse{}, err
	}
	resp, err := rest.Post[json.RawMessage](ctx, a.client, path, body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: execute: %w", err)
	}

	out, err := a.dialect.ParseResponse(resp.Data)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse response: %w", err)
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	return *out, nil
}

// Stream sends req in streaming mode. The channel closes when the stream
// ends, fails or ctx is cancelled. A failure before the first byte is
// returned directly.
func (a *Adapter) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	path, body, err := a.prepare(&req, true)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.DoStream(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    path,
		Body:    body,
		Headers: map[string]string{"Accept": a.dialect.StreamFormat().contentType()},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: stream: %w", err)
	}

	ch := make(chan StreamChunk)
	go a.readStream(ctx, resp, ch)
	return ch, nil
}

// prepare fills req's unset fields from the adapter defaults and encodes it.
func (a *Adapter) prepare(req *CompletionRequest, stream bool) (string, any, error) {
	if req.Model == "" {
		req.Model = a.defaults.Model
	}
	if req.Temperature == 0 {
		req.Temperature = a.defaults.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.defaults.MaxTokens
	}
	req.Stream = stream

	body, err := a.dialect.BuildRequest(*req)
	if err != nil {
		return "", nil, fmt.Errorf("llm: build request: %w", err)
	}
	return a.dialect.Path(*req), body, nil
}
