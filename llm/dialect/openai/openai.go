// Package openai implements the llm.Dialect for OpenAI-compatible
// chat-completion APIs (OpenAI, Groq, SambaNova, vLLM, LM Studio).
//
// Import it for its side effect to register the "openai" dialect:
//
//	import _ "github.com/kbukum/modelkit/llm/dialect/openai"
package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/modelkit/llm"
)

// Name is the registered dialect name.
const Name = "openai"

// ErrNoChoices is returned when a response body has no choices array.
var ErrNoChoices = errors.New("openai: response has no choices")

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests to the /chat/completions wire format.
type Dialect struct{}

// Name returns "openai".
func (d *Dialect) Name() string { return Name }

// Path returns the chat completions endpoint, relative to a base URL
// ending in /v1 (e.g. https://api.groq.com/openai/v1).
func (d *Dialect) Path(_ llm.CompletionRequest) string { return "/chat/completions" }

// HealthPath returns the model listing endpoint.
func (d *Dialect) HealthPath() string { return "/models" }

// StreamFormat returns SSE.
func (d *Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	N           int           `json:"n,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// BuildRequest maps req to a chat completion body. A bare Prompt is sent as
// a single user message.
func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	msgs := req.ChatMessages()
	if len(msgs) == 0 {
		return nil, fmt.Errorf("openai: request has no messages")
	}
	return chatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		N:           req.Candidates,
		Stop:        req.Stop,
		Stream:      req.Stream,
	}, nil
}

// ParseResponse reads choices[0].message.content.
func (d *Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	out := &llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
	}
	if fr := resp.Choices[0].FinishReason; fr != nil {
		out.FinishReason = *fr
	}
	if resp.Usage != nil {
		out.Usage = llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// ParseStreamChunk reads choices[0].delta.content from one SSE data payload.
// "[DONE]" ends the stream; payloads that fail to decode are skipped.
func (d *Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	payload := strings.TrimSpace(string(data))
	if payload == "[DONE]" {
		return "", true, nil
	}
	if payload == "" {
		return "", false, llm.ErrSkipChunk
	}
	var resp chatResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return "", false, llm.ErrSkipChunk
	}
	if len(resp.Choices) == 0 {
		return "", false, llm.ErrSkipChunk
	}
	return resp.Choices[0].Delta.Content, false, nil
}
