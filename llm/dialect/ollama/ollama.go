// Package ollama implements the llm.Dialect for Ollama's native API.
//
// Requests that carry a pre-templated Prompt go to /api/generate with
// raw mode on, so Ollama applies no template of its own. Chat requests go
// to /api/chat.
package ollama

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/modelkit/llm"
)

// Name is the registered dialect name.
const Name = "ollama"

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests to Ollama's /api/generate and /api/chat.
type Dialect struct{}

// Name returns "ollama".
func (d *Dialect) Name() string { return Name }

// Path picks /api/generate for raw prompts and /api/chat otherwise.
func (d *Dialect) Path(req llm.CompletionRequest) string {
	if req.Prompt != "" {
		return "/api/generate"
	}
	return "/api/chat"
}

// HealthPath returns the local model listing endpoint.
func (d *Dialect) HealthPath() string { return "/api/tags" }

// StreamFormat returns NDJSON.
func (d *Dialect) StreamFormat() llm.StreamFormat { return llm.StreamNDJSON }

type options struct {
	Temperature   float64  `json:"temperature,omitempty"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	NumPredict    int      `json:"num_predict,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Stop          []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Raw     bool     `json:"raw"`
	Stream  bool     `json:"stream"`
	Format  any      `json:"format,omitempty"`
	Options *options `json:"options,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   any           `json:"format,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

type response struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Message  *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (r *response) text() string {
	if r.Message != nil {
		return r.Message.Content
	}
	return r.Response
}

// BuildRequest maps req to a generate or chat body. Extra["format"] is
// forwarded as Ollama's structured output format.
func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	opts := buildOptions(req)
	format := req.Extra["format"]

	if req.Prompt != "" {
		return generateRequest{
			Model:   req.Model,
			Prompt:  req.Prompt,
			Raw:     true,
			Stream:  req.Stream,
			Format:  format,
			Options: opts,
		}, nil
	}

	msgs := req.ChatMessages()
	if len(msgs) == 0 {
		return nil, fmt.Errorf("ollama: request has no prompt or messages")
	}
	return chatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   req.Stream,
		Format:   format,
		Options:  opts,
	}, nil
}

func buildOptions(req llm.CompletionRequest) *options {
	o := options{
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		NumPredict:    req.MaxTokens,
		RepeatPenalty: req.RepetitionPenalty,
		Stop:          req.Stop,
	}
	if o.Temperature == 0 && o.TopP == 0 && o.TopK == 0 && o.NumPredict == 0 &&
		o.RepeatPenalty == 0 && len(o.Stop) == 0 {
		return nil
	}
	return &o
}

// ParseResponse reads "response" (generate) or "message.content" (chat).
func (d *Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", resp.Error)
	}
	return &llm.CompletionResponse{
		Content:      resp.text(),
		Model:        resp.Model,
		FinishReason: resp.DoneReason,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// ParseStreamChunk reads one NDJSON line. An "error" field fails the stream.
func (d *Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, fmt.Errorf("ollama: decode chunk: %w", err)
	}
	if resp.Error != "" {
		return "", false, fmt.Errorf("ollama: %s", resp.Error)
	}
	return resp.text(), resp.Done, nil
}
