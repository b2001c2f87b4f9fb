// Package llm is a config-driven LLM client built on httpclient/rest.
//
// A [Dialect] maps the universal [CompletionRequest] and [CompletionResponse]
// to one backend's HTTP format, the way database/sql drivers map SQL.
// [Adapter] composes a REST client with a dialect and serves both one-shot
// ([Adapter.Execute]) and streaming ([Adapter.Stream]) calls. Dialects for
// OpenAI-compatible APIs, Ollama, Text Generation Inference, llama.cpp and
// Gemini live under llm/dialect and register themselves on import:
//
//	import _ "github.com/kbukum/modelkit/llm/dialect/tgi"
//
//	adapter, err := llm.New(llm.Config{
//	    Dialect: "tgi",
//	    BaseURL: "http://localhost:8080",
//	})
//	resp, err := adapter.Execute(ctx, llm.CompletionRequest{
//	    Prompt:    "USER: Hello!\nASSISTANT:",
//	    MaxTokens: 256,
//	})
//
// SDK-backed clients for Anthropic and OpenAI live in llm/anthropic and
// llm/openaisdk and satisfy the same [Provider] interface.
package llm
