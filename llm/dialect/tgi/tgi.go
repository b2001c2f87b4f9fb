// Package tgi implements the llm.Dialect for Hugging Face Text Generation
// Inference. TGI serves one model per process, so the request model id is
// not sent.
package tgi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/modelkit/llm"
)

// Name is the registered dialect name.
const Name = "tgi"

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests to /generate and /generate_stream.
type Dialect struct{}

// Name returns "tgi".
func (d *Dialect) Name() string { return Name }

// Path returns /generate_stream for streaming requests and /generate otherwise.
func (d *Dialect) Path(req llm.CompletionRequest) string {
	if req.Stream {
		return "/generate_stream"
	}
	return "/generate"
}

// HealthPath returns TGI's health endpoint.
func (d *Dialect) HealthPath() string { return "/health" }

// StreamFormat returns SSE.
func (d *Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

type parameters struct {
	Temperature       float64  `json:"temperature,omitempty"`
	TopP              float64  `json:"top_p,omitempty"`
	TopK              int      `json:"top_k,omitempty"`
	MaxNewTokens      int      `json:"max_new_tokens,omitempty"`
	RepetitionPenalty float64  `json:"repetition_penalty,omitempty"`
	DoSample          bool     `json:"do_sample"`
	ReturnFullText    bool     `json:"return_full_text"`
	Stop              []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
	Details       *struct {
		FinishReason    string `json:"finish_reason"`
		GeneratedTokens int    `json:"generated_tokens"`
	} `json:"details"`
}

type streamEvent struct {
	Token *struct {
		Text    string `json:"text"`
		Special bool   `json:"special"`
	} `json:"token"`
	GeneratedText *string `json:"generated_text"`
	Error         string  `json:"error"`
}

// BuildRequest maps req to a TGI body with sampling enabled. TGI rejects
// top_p >= 1, so such values are left to the server default.
func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	inputs := req.Prompt
	if inputs == "" {
		inputs = req.Text()
		if req.SystemPrompt != "" && inputs != "" {
			inputs = req.SystemPrompt + "\n\n" + inputs
		}
	}
	if inputs == "" {
		return nil, fmt.Errorf("tgi: request has no inputs")
	}
	p := parameters{
		Temperature:       req.Temperature,
		TopK:              req.TopK,
		MaxNewTokens:      req.MaxTokens,
		RepetitionPenalty: req.RepetitionPenalty,
		DoSample:          true,
		Stop:              req.Stop,
	}
	if req.TopP > 0 && req.TopP < 1 {
		p.TopP = req.TopP
	}
	return generateRequest{Inputs: inputs, Parameters: p}, nil
}

// ParseResponse reads generated_text. Some TGI deployments wrap the object
// in a one-element array.
func (d *Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	var resp generateResponse
	if strings.HasPrefix(trimmed, "[") {
		var list []generateResponse
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("tgi: decode response: %w", err)
		}
		if len(list) == 0 {
			return nil, llm.ErrEmptyResponse
		}
		resp = list[0]
	} else if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return nil, fmt.Errorf("tgi: decode response: %w", err)
	}

	out := &llm.CompletionResponse{Content: resp.GeneratedText}
	if resp.Details != nil {
		out.FinishReason = resp.Details.FinishReason
		out.Usage.CompletionTokens = resp.Details.GeneratedTokens
		out.Usage.TotalTokens = resp.Details.GeneratedTokens
	}
	return out, nil
}

// ParseStreamChunk emits each non-special token. The event carrying
// generated_text ends the stream.
func (d *Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", false, llm.ErrSkipChunk
	}
	if ev.Error != "" {
		return "", false, fmt.Errorf("tgi: %s", ev.Error)
	}
	var content string
	if ev.Token != nil && !ev.Token.Special {
		content = ev.Token.Text
	}
	return content, ev.GeneratedText != nil, nil
}
