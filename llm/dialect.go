package llm

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// StreamFormat indicates how a backend delivers streaming responses.
type StreamFormat int

const (
	// StreamNDJSON is newline-delimited JSON (Ollama).
	StreamNDJSON StreamFormat = iota
	// StreamSSE is Server-Sent Events (OpenAI-compatible, TGI, llama.cpp, Gemini).
	StreamSSE
)

// ErrSkipChunk is returned by ParseStreamChunk for payloads that carry no
// content and should be ignored, such as keep-alives or malformed lines.
var ErrSkipChunk = errors.New("llm: skip chunk")

// ErrEmptyResponse is returned when a backend answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Dialect maps universal LLM types to and from one backend's HTTP format.
type Dialect interface {
	// Name returns the dialect identifier (e.g. "ollama", "openai").
	Name() string

	// Path returns the endpoint path for req. It may depend on req.Stream,
	// req.Prompt or req.Model.
	Path(req CompletionRequest) string

	// HealthPath returns a GET endpoint used as a liveness check. Empty means none.
	HealthPath() string

	// BuildRequest maps req to the backend's JSON request body.
	BuildRequest(req CompletionRequest) (any, error)

	// ParseResponse maps the backend's JSON response body.
	ParseResponse(body []byte) (*CompletionResponse, error)

	// StreamFormat returns how this backend delivers streaming data.
	StreamFormat() StreamFormat

	// ParseStreamChunk extracts content from one stream payload and reports
	// whether the stream is complete. Return ErrSkipChunk to ignore a payload.
	ParseStreamChunk(data []byte) (content string, done bool, err error)
}

// contentType is the Accept header sent for streams of this format.
func (f StreamFormat) contentType() string {
	if f == StreamSSE {
		return "text/event-stream"
	}
	return "application/x-ndjson"
}

type dialectRegistry struct {
	mu sync.RWMutex
	m  map[string]Dialect
}

// registered holds the dialects that wire packages add from init.
var registered = &dialectRegistry{m: map[string]Dialect{}}

// RegisterDialect adds or replaces a dialect. Dialect packages call it from
// init, so importing one registers it.
func RegisterDialect(name string, d Dialect) {
	registered.mu.Lock()
	defer registered.mu.Unlock()
	registered.m[name] = d
}

// GetDialect returns the dialect registered as name.
func GetDialect(name string) (Dialect, error) {
	registered.mu.RLock()
	defer registered.mu.RUnlock()
	if d, ok := registered.m[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("llm: unknown dialect %q (forgot to import driver?)", name)
}

// Dialects returns the registered names in order.
func Dialects() []string {
	registered.mu.RLock()
	defer registered.mu.RUnlock()
	return slices.Sorted(maps.Keys(registered.m))
}
