package llm

import "github.com/kbukum/modelkit/provider"

// Provider is any backend that answers a CompletionRequest: a dialect
// Adapter, an SDK client, or either wrapped in middleware.
type Provider = provider.RequestResponse[CompletionRequest, CompletionResponse]

// StreamProvider is a Provider that can also stream.
type StreamProvider = provider.Streamable[CompletionRequest, CompletionResponse, StreamChunk]
