package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"

	"github.com/kbukum/modelkit/httpclient"
)

var jsonHeaders = map[string]string{
	"Content-Type": "application/json",
	"Accept":       "application/json",
}

// Client sends JSON requests through an httpclient.Client.
type Client struct {
	*httpclient.Client
}

// New builds the underlying client with JSON Content-Type and Accept
// headers unless cfg already sets them.
func New(cfg httpclient.Config) (*Client, error) {
	headers := maps.Clone(jsonHeaders)
	maps.Copy(headers, cfg.Headers)
	cfg.Headers = headers

	c, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}

// NewFromClient wraps an existing client as is.
func NewFromClient(c *httpclient.Client) *Client { return &Client{Client: c} }

// HTTP returns the underlying client, e.g. for DoStream.
func (c *Client) HTTP() *httpclient.Client { return c.Client }

// RequestOption adjusts one request.
type RequestOption func(*httpclient.Request)

func WithQuery(params map[string]string) RequestOption {
	return func(r *httpclient.Request) { r.Query = params }
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(r *httpclient.Request) { r.Headers = headers }
}

func WithAuth(auth *httpclient.AuthConfig) RequestOption {
	return func(r *httpclient.Request) { r.Auth = auth }
}

// Response is a decoded JSON response.
type Response[T any] struct {
	StatusCode int
	Headers    map[string]string
	Data       T
}

func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return call[T](ctx, c, http.MethodGet, path, nil, opts)
}

func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return call[T](ctx, c, http.MethodPost, path, body, opts)
}

// call decodes the body even when the status is an error, since backends
// explain rejections in a JSON body. The status error is still returned.
func call[T any](ctx context.Context, c *Client, method, path string, body any, opts []RequestOption) (*Response[T], error) {
	req := httpclient.Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.Do(ctx, req)
	if resp == nil {
		return nil, err
	}
	out := &Response[T]{StatusCode: resp.StatusCode, Headers: resp.Headers}
	if len(resp.Body) == 0 {
		return out, err
	}
	if decodeErr := json.Unmarshal(resp.Body, &out.Data); decodeErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("httpclient/rest: decode response: %w", decodeErr)
	}
	return out, err
}
