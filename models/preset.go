package models

import (
	"time"

	"github.com/kbukum/modelkit/llm/dialect/gemini"
	"github.com/kbukum/modelkit/prompt"
)

// Kind selects how a preset turns text into a backend request.
type Kind string

const (
	// KindLocal renders a prompt template and sends raw text to a
	// completion server.
	KindLocal Kind = "local"
	// KindChat sends a system and a user message to a chat API.
	KindChat Kind = "chat"
	// KindGemini sends a single prompt with a fixed generation config and
	// joins every candidate.
	KindGemini Kind = "gemini"
)

// Backends that are not wire dialects.
const (
	BackendOpenAISDK = "openaisdk"
	BackendAnthropic = "anthropic"
)

// DefaultRetryWait is the pause after an HTTP 429 before retrying.
const DefaultRetryWait = 12 * time.Second

// RemoteSystem is the system prompt of the hosted chat presets.
const RemoteSystem = "You are a helpful AI assistant."

// OpenAISystem is the system prompt of the openai preset.
const OpenAISystem = "You are a helpful assistant. You can help me by answering my questions. You can also ask me questions."

// Preset is a named recipe: backend, model id and default parameters.
type Preset struct {
	Name        string `json:"name" yaml:"name"`
	Kind        Kind   `json:"kind" yaml:"kind"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Template is the prompt template of local presets.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	// Backend is a dialect name, BackendOpenAISDK or BackendAnthropic.
	Backend string `json:"backend" yaml:"backend"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIKeyEnv is read when the model config carries no key.
	APIKeyEnv     string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	RequireAPIKey bool   `json:"require_api_key,omitempty" yaml:"require_api_key,omitempty"`
	// RequireModel means the preset has no default model id.
	RequireModel bool `json:"require_model,omitempty" yaml:"require_model,omitempty"`
	SkipVerify   bool `json:"skip_verify,omitempty" yaml:"skip_verify,omitempty"`
	// MaxLength caps prompt plus completion tokens.
	MaxLength  int `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Candidates int `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	// RateLimitRetries is how many times a 429 is retried after RetryWait.
	RateLimitRetries int           `json:"rate_limit_retries,omitempty" yaml:"rate_limit_retries,omitempty"`
	RetryWait        time.Duration `json:"retry_wait,omitempty" yaml:"retry_wait,omitempty"`
	Defaults         Params        `json:"defaults" yaml:"defaults"`
}

// Default base URLs of local inference servers, by dialect.
var defaultBaseURLs = map[string]string{
	"tgi":      "http://localhost:8080",
	"llamacpp": "http://localhost:8080",
	"ollama":   "http://localhost:11434",
	"openai":   "https://api.openai.com/v1",
	"gemini":   gemini.DefaultBaseURL,
}

func local(name, template, model string, d Params) Preset {
	return Preset{
		Name:     name,
		Kind:     KindLocal,
		Template: template,
		Backend:  "tgi",
		Model:    model,
		Defaults: d,
	}
}

func sampling(temp, topP float64, maxNew int) Params {
	return Params{Temperature: temp, TopP: topP, MaxNewTokens: maxNew}
}

// builtinPresets is the preset table. Order is presentation order.
func builtinPresets() []Preset {
	chatglm := local("chatglm", prompt.ChatGLM, "THUDM/chatglm-6b", sampling(0.8, 0.8, 0))
	chatglm.MaxLength = 4096
	chatglm.Description = "ChatGLM-6B"

	qwen := local("qwen", prompt.Qwen, "Qwen/Qwen-7B-Chat", sampling(0.8, 0.8, 0))
	qwen.MaxLength = 4096
	qwen.Description = "Qwen-7B-Chat"

	qwen2 := local("qwen2", prompt.Qwen2, "Qwen/Qwen1.5-7B-Chat", sampling(0.8, 0.8, 512))
	qwen2.Description = "Qwen1.5 chat template"

	baichuan := local("baichuan", prompt.Baichuan, "baichuan-inc/Baichuan-13B-Chat", sampling(0.8, 0.8, 0))
	baichuan.Description = "Baichuan-13B-Chat"

	mossParams := sampling(0.7, 0.8, 256)
	mossParams.RepetitionPenalty = 1.02
	moss := local("moss", prompt.MOSS, "fnlp/moss-moon-003-sft", mossParams)
	moss.Description = "MOSS with its meta instruction"

	vicuna := local("vicuna", prompt.Vicuna, "", sampling(0.7, 0.8, 256))
	vicuna.RequireModel = true
	vicuna.Description = "Vicuna USER/ASSISTANT format"

	wizard := local("wizardlm", prompt.WizardLM, "", sampling(0.7, 0.8, 256))
	wizard.RequireModel = true
	wizard.Description = "WizardLM ### Response format"

	belle := local("belle", prompt.BELLE, "", sampling(0.7, 0.8, 256))
	belle.RequireModel = true
	belle.Description = "BELLE Human/Assistant format"

	llama2 := local("llama2", prompt.Llama2, "meta-llama/Llama-2-7b-chat-hf", sampling(0.7, 0.8, 256))
	llama2.Description = "Llama-2 chat [INST] format"

	llama2Chat := local("llama2-chat", prompt.Llama2Chat, "", sampling(0.7, 0.8, 256))
	llama2Chat.RequireModel = true
	llama2Chat.Description = "Llama-2 [INST] format with Meta's system prompt"

	mistral := local("mistral", prompt.Llama2, "mistralai/Mistral-7B-Instruct", sampling(0.7, 0.8, 256))
	mistral.Description = "Mistral/Phi/Gemma chat model in [INST] format"

	openaiParams := sampling(0.7, 1, 0)
	openaiParams.System = OpenAISystem

	remote := sampling(0.7, 0.8, 256)
	remote.System = RemoteSystem

	groqQwen := sampling(0.7, 0.95, 128)
	groqQwen.System = RemoteSystem

	geminiParams := sampling(0.1, 1, 500)
	geminiParams.TopK = 5

	anthropicParams := sampling(0.7, 0, 1024)
	anthropicParams.System = RemoteSystem

	return []Preset{
		chatglm, qwen, qwen2, baichuan, moss, vicuna, wizard, belle, llama2, llama2Chat, mistral,
		{
			Name:        "openai",
			Kind:        KindChat,
			Description: "OpenAI chat completions",
			Backend:     BackendOpenAISDK,
			Model:       "gpt-3.5-turbo",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Defaults:    openaiParams,
		},
		{
			Name:        "groq-llama3",
			Kind:        KindChat,
			Description: "Llama-3 70B on Groq",
			Backend:     "openai",
			Model:       "llama3-70b-8192",
			BaseURL:     "https://api.groq.com/openai/v1",
			APIKeyEnv:   "GROQ_API_KEY",
			SkipVerify:  true,
			Defaults:    remote,
		},
		{
			Name:          "sambanova-qwen",
			Kind:          KindChat,
			Description:   "Qwen2.5 72B on SambaNova",
			Backend:       "openai",
			Model:         "Qwen2.5-72B-Instruct",
			BaseURL:       "https://api.sambanova.ai/v1",
			APIKeyEnv:     "SAMBANOVA_API_KEY",
			RequireAPIKey: true,
			SkipVerify:    true,
			Defaults:      remote,
		},
		{
			Name:             "groq-qwen",
			Kind:             KindChat,
			Description:      "Qwen2.5 32B on Groq, waits out rate limits",
			Backend:          "openai",
			Model:            "qwen-2.5-32b",
			BaseURL:          "https://api.groq.com/openai/v1",
			APIKeyEnv:        "GROQ_API_KEY",
			SkipVerify:       true,
			RateLimitRetries: 5,
			RetryWait:        DefaultRetryWait,
			Defaults:         groqQwen,
		},
		{
			Name:          "gemini",
			Kind:          KindGemini,
			Description:   "Gemini 2.0 Flash, five candidates joined",
			Backend:       "gemini",
			Model:         "gemini-2.0-flash",
			BaseURL:       gemini.DefaultBaseURL,
			APIKeyEnv:     "GEMINI_API_KEY",
			RequireAPIKey: true,
			Candidates:    5,
			Defaults:      geminiParams,
		},
		{
			Name:        "anthropic",
			Kind:        KindChat,
			Description: "Claude via the Messages API",
			Backend:     BackendAnthropic,
			Model:       "claude-sonnet-4-5",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			Defaults:    anthropicParams,
		},
	}
}
