package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/modelkit/httpclient/sse"
)

// Request describes one outbound call.
type Request struct {
	Method string
	// Path is joined to Config.BaseURL unless it is already absolute.
	Path string
	// Headers override Config.Headers.
	Headers map[string]string
	Query   map[string]string
	// Body may be an io.Reader, []byte, string or any JSON-encodable value.
	Body any
	// Auth replaces Config.Auth for this call.
	Auth *AuthConfig
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	// Headers keeps the first value of each header.
	Headers map[string]string
	Body    []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool { return r.StatusCode/100 == 2 }

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool { return r.StatusCode >= http.StatusBadRequest }

// StreamResponse is an open response body. Exactly one of SSE and Body is
// set, depending on the Content-Type.
type StreamResponse struct {
	StatusCode int
	Headers    map[string]string
	SSE        sse.Reader
	Body       io.ReadCloser
	closer     io.Closer
}

// Close releases the connection.
func (r *StreamResponse) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// build turns r into an *http.Request using cfg's base URL, default headers
// and auth.
func (r Request) build(ctx context.Context, cfg Config) (*http.Request, error) {
	target, err := r.url(cfg.BaseURL)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("build url: %v", err))
	}
	body, contentType, err := encodeBody(r.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	for _, hs := range []map[string]string{cfg.Headers, r.Headers} {
		for k, v := range hs {
			req.Header.Set(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	auth := cfg.Auth
	if r.Auth != nil {
		auth = r.Auth
	}
	auth.apply(req)
	return req, nil
}

func (r Request) url(base string) (string, error) {
	raw := r.Path
	if base != "" && !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
	}
	if len(r.Query) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range r.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
