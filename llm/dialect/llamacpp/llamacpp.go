// Package llamacpp implements the llm.Dialect for the llama.cpp HTTP
// server's native /completion endpoint.
package llamacpp

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/modelkit/llm"
)

// Name is the registered dialect name.
const Name = "llamacpp"

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests to llama.cpp's /completion.
type Dialect struct{}

// Name returns "llamacpp".
func (d *Dialect) Name() string { return Name }

// Path returns /completion for both streaming and non-streaming calls.
func (d *Dialect) Path(_ llm.CompletionRequest) string { return "/completion" }

// HealthPath returns the server health endpoint.
func (d *Dialect) HealthPath() string { return "/health" }

// StreamFormat returns SSE.
func (d *Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	Temperature   float64  `json:"temperature,omitempty"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	NPredict      int      `json:"n_predict,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Stream        bool     `json:"stream"`
}

type completionResponse struct {
	Content         string `json:"content"`
	Model           string `json:"model"`
	Stop            bool   `json:"stop"`
	StopType        string `json:"stop_type"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

// BuildRequest maps req to a /completion body. Without a Prompt the system
// prompt and the last user message are joined by a blank line.
func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = req.Text()
		if req.SystemPrompt != "" && prompt != "" {
			prompt = req.SystemPrompt + "\n\n" + prompt
		}
	}
	if prompt == "" {
		return nil, fmt.Errorf("llamacpp: request has no prompt")
	}
	return completionRequest{
		Prompt:        prompt,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		NPredict:      req.MaxTokens,
		RepeatPenalty: req.RepetitionPenalty,
		Stop:          req.Stop,
		Stream:        req.Stream,
	}, nil
}

// ParseResponse reads content and token counts.
func (d *Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("llamacpp: decode response: %w", err)
	}
	return &llm.CompletionResponse{
		Content:      resp.Content,
		Model:        resp.Model,
		FinishReason: resp.StopType,
		Usage: llm.Usage{
			PromptTokens:     resp.TokensEvaluated,
			CompletionTokens: resp.TokensPredicted,
			TotalTokens:      resp.TokensEvaluated + resp.TokensPredicted,
		},
	}, nil
}

// ParseStreamChunk reads content from one SSE event; stop ends the stream.
func (d *Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	var resp completionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, llm.ErrSkipChunk
	}
	return resp.Content, resp.Stop, nil
}
