package llm

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// CompletionRequest is the universal input for all LLM backends.
// Zero-valued sampling fields mean "backend default".
type CompletionRequest struct {
	// Model overrides the adapter's default model.
	Model string `json:"model,omitempty" yaml:"model"`
	// Messages is the conversation for chat backends.
	Messages []Message `json:"messages,omitempty" yaml:"messages"`
	// SystemPrompt is sent as a system message or system instruction.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt"`
	// Prompt is raw, already-templated text for completion backends. When set,
	// completion-style dialects send it verbatim and ignore Messages.
	Prompt string `json:"prompt,omitempty" yaml:"prompt"`

	Temperature       float64  `json:"temperature,omitempty" yaml:"temperature"`
	TopP              float64  `json:"top_p,omitempty" yaml:"top_p"`
	TopK              int      `json:"top_k,omitempty" yaml:"top_k"`
	MaxTokens         int      `json:"max_tokens,omitempty" yaml:"max_tokens"`
	RepetitionPenalty float64  `json:"repetition_penalty,omitempty" yaml:"repetition_penalty"`
	Candidates        int      `json:"candidates,omitempty" yaml:"candidates"`
	Stop              []string `json:"stop,omitempty" yaml:"stop"`

	// Stream requests streaming mode. Set automatically by Adapter.Stream.
	Stream bool `json:"stream,omitempty" yaml:"stream"`
	// Extra holds dialect-specific fields that don't fit the universal schema.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra"`
}

// ChatMessages returns Messages with SystemPrompt prepended as a system
// message. A Prompt without Messages becomes a single user message.
func (r CompletionRequest) ChatMessages() []Message {
	msgs := make([]Message, 0, len(r.Messages)+2)
	if r.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: r.SystemPrompt})
	}
	msgs = append(msgs, r.Messages...)
	if len(r.Messages) == 0 && r.Prompt != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: r.Prompt})
	}
	return msgs
}

// Text returns Prompt, or the content of the last user message.
func (r CompletionRequest) Text() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// CompletionResponse is the universal output from all LLM backends.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// StreamChunk is a single piece of a streamed response.
type StreamChunk struct {
	Content string `json:"content"`
	// Done marks the final chunk.
	Done bool `json:"done"`
	// Err is set when the stream failed; it is always the last chunk.
	Err error `json:"-"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
