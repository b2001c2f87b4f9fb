package provider

import "context"

// Provider is anything a Manager can hold and a Selector can health-check.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from its configuration.
type Factory[T Provider, C any] func(cfg C) (T, error)

// RequestResponse answers one input with one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Streamable can also answer as a stream of chunks. The channel is closed
// when the stream ends; failures arrive as chunk values.
type Streamable[I, O, C any] interface {
	RequestResponse[I, O]
	Stream(ctx context.Context, input I) (<-chan C, error)
}

// Closeable providers hold resources such as idle connections.
type Closeable interface {
	Close(ctx context.Context) error
}

// closeInner closes p when it is Closeable.
func closeInner(ctx context.Context, p any) error {
	if c, ok := p.(Closeable); ok {
		return c.Close(ctx)
	}
	return nil
}
