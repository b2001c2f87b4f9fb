package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"

	"github.com/kbukum/modelkit/httpclient/sse"
	"github.com/kbukum/modelkit/resilience"
)

// Client is the transport shared by every HTTP-backed model. It applies the
// backend's auth, TLS and resilience settings to each request.
type Client struct {
	cfg Config
	// unary is bounded by cfg.Timeout; streaming has no overall timeout
	// since token streams can outlive it and ctx cancels them instead.
	unary     *http.Client
	streaming *http.Client
	cb        *resilience.CircuitBreaker
	rl        *resilience.RateLimiter
}

// New builds a Client from cfg. A circuit breaker without IsFailure only
// counts backend failures (5xx, timeouts and refused connections).
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{
		cfg:       cfg,
		unary:     &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streaming: &http.Client{Transport: transport},
	}
	if cfg.CircuitBreaker != nil {
		cb := *cfg.CircuitBreaker
		if cb.IsFailure == nil {
			cb.IsFailure = IsBackendFailure
		}
		c.cb = resilience.NewCircuitBreaker(cb)
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Do sends req and reads the whole response. Every retry attempt passes the
// rate limiter and circuit breaker on its own.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	attempt := func() (*Response, error) {
		return guard(ctx, c, func() (*Response, error) { return c.roundTrip(ctx, req) })
	}
	if c.cfg.Retry == nil {
		return attempt()
	}
	return resilience.Retry(ctx, *c.cfg.Retry, attempt)
}

// DoStream sends req and returns the open response body. It is never
// retried. The caller must Close the result.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	return guard(ctx, c, func() (*StreamResponse, error) { return c.openStream(ctx, req) })
}

// Unwrap returns the bounded *http.Client, for SDKs that take their own.
func (c *Client) Unwrap() *http.Client { return c.unary }

// Name returns the backend name.
func (c *Client) Name() string { return c.cfg.Name }

// Config returns a copy of the configuration.
func (c *Client) Config() Config { return c.cfg }

// IsAvailable is false while the circuit breaker is open. Backends with a
// health endpoint check it as well.
func (c *Client) IsAvailable(context.Context) bool {
	return c.cb == nil || c.cb.State() != resilience.StateOpen
}

// Close releases idle connections.
func (c *Client) Close(context.Context) error {
	c.unary.CloseIdleConnections()
	return nil
}

func guard[T any](ctx context.Context, c *Client, call func() (T, error)) (T, error) {
	var zero T
	if c.rl != nil {
		if err := c.rl.Wait(ctx); err != nil {
			return zero, err
		}
	}
	if c.cb == nil {
		return call()
	}
	if err := c.cb.Allow(); err != nil {
		return zero, err
	}
	out, err := call()
	c.cb.Record(err)
	return out, err
}

func (c *Client) roundTrip(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := req.build(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	resp, err := c.unary.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Headers: firstValues(resp.Header), Body: body}
	if e := classifyResponse(resp.StatusCode, resp.Header, body); e != nil {
		return out, e
	}
	return out, nil
}

func (c *Client) openStream(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := req.build(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, classifyResponse(resp.StatusCode, resp.Header, body)
	}

	out := &StreamResponse{StatusCode: resp.StatusCode, Headers: firstValues(resp.Header), closer: resp.Body}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "text/event-stream" {
		out.SSE = sse.NewReader(resp.Body)
	} else {
		out.Body = resp.Body
	}
	return out, nil
}

// transportError classifies a failure that produced no response.
func transportError(ctx context.Context, err error) *Error {
	var ne net.Error
	if ctx.Err() != nil || (errors.As(err, &ne) && ne.Timeout()) {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}
