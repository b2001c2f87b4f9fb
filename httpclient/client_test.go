package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/modelkit/resilience"
	"github.com/kbukum/modelkit/security"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

// backend starts a test server with h and closes it when the test ends.
func backend(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// counting answers every request with status and counts them.
func counting(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var n atomic.Int32
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(status)
	})
	return srv, &n
}

func TestClient_Do_PostJSON(t *testing.T) {
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3-70b-8192", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}]}`))
	})

	c := newTestClient(t, Config{Name: "groq", BaseURL: srv.URL + "/v1/"})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/chat/completions",
		Body:   map[string]any{"model": "llama3-70b-8192"},
	})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.False(t, resp.IsError())
	assert.Contains(t, string(resp.Body), `"hi"`)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
}

func TestClient_Do_HeadersQueryAuth(t *testing.T) {
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "override", r.Header.Get("X-Org"), "request header wins")
		assert.Equal(t, "1", r.Header.Get("X-Trace"))
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "per-request", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"), "request auth replaces client auth")
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, Config{
		BaseURL: srv.URL,
		Auth:    BearerAuth("client-level"),
		Headers: map[string]string{"X-Org": "default", "X-Trace": "1"},
	})
	_, err := c.Do(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/v1beta/models",
		Headers: map[string]string{"X-Org": "override"},
		Query:   map[string]string{"alt": "sse"},
		Auth:    APIKeyAuthQuery("per-request", "key"),
	})
	require.NoError(t, err)
}

func TestClient_Do_Bodies(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		contentType string
		want        string
	}{
		{"string", "raw prompt", "text/plain", "raw prompt"},
		{"bytes", []byte(`{"inputs":"x"}`), "", `{"inputs":"x"}`},
		{"reader", strings.NewReader("streamed"), "", "streamed"},
		{"json", map[string]int{"n": 1}, "application/json", `{"n":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
				got, _ := io.ReadAll(r.Body)
				assert.Equal(t, tt.want, string(got))
				if tt.contentType != "" {
					assert.Equal(t, tt.contentType, r.Header.Get("Content-Type"))
				}
			})

			c := newTestClient(t, Config{BaseURL: srv.URL})
			_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Body: tt.body})
			require.NoError(t, err)
		})
	}
}

func TestClient_Do_FullURLIgnoresBaseURL(t *testing.T) {
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/direct", r.URL.Path)
	})

	c := newTestClient(t, Config{BaseURL: "http://unused.invalid"})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: srv.URL + "/direct"})
	require.NoError(t, err)
}

func TestClient_Do_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		is     func(error) bool
	}{
		{http.StatusUnauthorized, IsAuth},
		{http.StatusNotFound, IsNotFound},
		{http.StatusTooManyRequests, IsRateLimit},
		{http.StatusBadGateway, IsServerError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			c := newTestClient(t, Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			require.Error(t, err)
			assert.True(t, tt.is(err), "classified as %v", err)
			require.NotNil(t, resp, "the response comes back with the error")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, err.Error(), "nope", "upstream body is kept")
		})
	}
}

func TestClient_Do_ContextDeadline(t *testing.T) {
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) { <-r.Context().Done() })

	c := newTestClient(t, Config{BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestClient_Do_RetryTransient(t *testing.T) {
	var attempts atomic.Int32
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: retry})

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestClient_Do_RateLimitRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: RateLimitRetryConfig(3, 5*time.Millisecond)})
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, attempts.Load())
}

func TestClient_Do_RateLimitRetryIgnoresOtherErrors(t *testing.T) {
	srv, attempts := counting(t, http.StatusInternalServerError)

	c := newTestClient(t, Config{BaseURL: srv.URL, Retry: RateLimitRetryConfig(3, time.Millisecond)})
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	assert.True(t, IsServerError(err), "got %v", err)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestClient_CircuitBreaker(t *testing.T) {
	srv, _ := counting(t, http.StatusInternalServerError)

	cb := resilience.DefaultCircuitBreakerConfig("tgi")
	cb.MaxFailures = 2
	c := newTestClient(t, Config{BaseURL: srv.URL, CircuitBreaker: &cb})

	ctx := context.Background()
	require.True(t, c.IsAvailable(ctx))
	for range 2 {
		_, _ = c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	}
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, c.IsAvailable(ctx))
}

func TestClient_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	srv, attempts := counting(t, http.StatusUnprocessableEntity)

	cb := resilience.DefaultCircuitBreakerConfig("tgi")
	cb.MaxFailures = 1
	c := newTestClient(t, Config{BaseURL: srv.URL, CircuitBreaker: &cb})

	for range 3 {
		_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/generate"})
		require.NotErrorIs(t, err, resilience.ErrCircuitOpen, "a 422 must not open the circuit")
	}
	assert.EqualValues(t, 3, attempts.Load())
}

func TestClient_DoStreamHonorsCircuitBreaker(t *testing.T) {
	srv, _ := counting(t, http.StatusBadGateway)

	cb := resilience.DefaultCircuitBreakerConfig("llamacpp")
	cb.MaxFailures = 1
	c := newTestClient(t, Config{BaseURL: srv.URL, CircuitBreaker: &cb})

	_, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	require.True(t, IsServerError(err), "got %v", err)
	_, err = c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestClient_DoStream(t *testing.T) {
	t.Run("sse", func(t *testing.T) {
		srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
			_, _ = fmt.Fprint(w, "data: hello\n\ndata: [DONE]\n\n")
		})

		c := newTestClient(t, Config{BaseURL: srv.URL})
		stream, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/"})
		require.NoError(t, err)
		defer func() { _ = stream.Close() }()

		require.NotNil(t, stream.SSE)
		assert.Nil(t, stream.Body)
		ev, err := stream.SSE.Next()
		require.NoError(t, err)
		assert.Equal(t, "hello", ev.Data)
	})

	t.Run("ndjson", func(t *testing.T) {
		srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = fmt.Fprint(w, "{\"response\":\"a\"}\n{\"done\":true}\n")
		})

		c := newTestClient(t, Config{BaseURL: srv.URL})
		stream, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/api/generate"})
		require.NoError(t, err)
		defer func() { _ = stream.Close() }()

		require.NotNil(t, stream.Body)
		assert.Nil(t, stream.SSE)
		data, _ := io.ReadAll(stream.Body)
		assert.Contains(t, string(data), `"done":true`)
	})

	t.Run("error status", func(t *testing.T) {
		srv := backend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		c := newTestClient(t, Config{BaseURL: srv.URL})
		_, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/"})
		require.True(t, IsRateLimit(err), "got %v", err)
		d, ok := RetryAfter(err)
		assert.True(t, ok)
		assert.Equal(t, 2*time.Second, d)
	})
}

func TestClient_Accessors(t *testing.T) {
	c := newTestClient(t, Config{Name: "sambanova"})
	assert.Equal(t, "sambanova", c.Name())
	assert.NotNil(t, c.Unwrap())
	assert.Equal(t, defaultTimeout, c.Config().Timeout)
	assert.NoError(t, c.Close(context.Background()))
}

func TestNew_InvalidTLS(t *testing.T) {
	_, err := New(Config{TLS: &security.TLSConfig{CertFile: "only-cert.pem"}})
	assert.Error(t, err)
}
