// Package gemini implements the llm.Dialect for the Google Generative
// Language REST API (v1beta generateContent).
//
// The API key travels as the "key" query parameter; configure the adapter
// with httpclient.APIKeyAuthQuery(key, "key").
package gemini

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/kbukum/modelkit/llm"
)

// Name is the registered dialect name.
const Name = "gemini"

// DefaultBaseURL is the public Generative Language endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

func init() {
	llm.RegisterDialect(Name, &Dialect{})
}

// Dialect maps llm requests to generateContent and streamGenerateContent.
type Dialect struct{}

// Name returns "gemini".
func (d *Dialect) Name() string { return Name }

// Path embeds the model id. Streaming uses the SSE variant (alt=sse).
func (d *Dialect) Path(req llm.CompletionRequest) string {
	model := url.PathEscape(strings.TrimPrefix(req.Model, "models/"))
	if req.Stream {
		return "/v1beta/models/" + model + ":streamGenerateContent?alt=sse"
	}
	return "/v1beta/models/" + model + ":generateContent"
}

// HealthPath returns the model listing endpoint.
func (d *Dialect) HealthPath() string { return "/v1beta/models" }

// StreamFormat returns SSE.
func (d *Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	CandidateCount  int      `json:"candidateCount,omitempty"`
	TopK            int      `json:"topK,omitempty"`
	TopP            float64  `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// BuildRequest maps req to a generateContent body. Chat history is sent as
// alternating user/model contents.
func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("gemini: model is required")
	}
	var contents []content
	if req.Prompt != "" && len(req.Messages) == 0 {
		contents = append(contents, content{Role: "user", Parts: []part{{Text: req.Prompt}}})
	}
	for _, m := range req.Messages {
		role := "user"
		switch m.Role {
		case llm.RoleAssistant:
			role = "model"
		case llm.RoleSystem:
			continue
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini: request has no contents")
	}

	out := generateRequest{Contents: contents}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	gc := generationConfig{
		MaxOutputTokens: req.MaxTokens,
		CandidateCount:  req.Candidates,
		TopK:            req.TopK,
		TopP:            req.TopP,
		StopSequences:   req.Stop,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		gc.Temperature = &t
	}
	if gc.MaxOutputTokens != 0 || gc.CandidateCount != 0 || gc.TopK != 0 || gc.TopP != 0 ||
		gc.Temperature != nil || len(gc.StopSequences) > 0 {
		out.GenerationConfig = &gc
	}
	return out, nil
}

// ParseResponse joins the text of every part of every candidate, each
// followed by a newline, and trims the result.
func (d *Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: prompt blocked: %s: %w", resp.PromptFeedback.BlockReason, llm.ErrEmptyResponse)
	}

	text := strings.TrimSpace(joinCandidates(&resp))
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}
	out := &llm.CompletionResponse{Content: text, Model: resp.ModelVersion}
	if len(resp.Candidates) > 0 {
		out.FinishReason = resp.Candidates[0].FinishReason
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return out, nil
}

// ParseStreamChunk returns the text of one streamed response. The stream
// ends when the server closes it.
func (d *Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	var resp generateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, llm.ErrSkipChunk
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String(), false, nil
}

func joinCandidates(resp *generateResponse) string {
	var b strings.Builder
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			if p.Text == "" {
				continue
			}
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}
