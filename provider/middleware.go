package provider

import "context"

// Middleware wraps a RequestResponse provider.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares with the first outermost:
// Chain(a, b, c)(p) is a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Interceptor runs around one Execute call. name is the wrapped
// provider's name and next invokes it.
type Interceptor[I, O any] func(ctx context.Context, name string, input I, next func(context.Context, I) (O, error)) (O, error)

// Intercept turns fn into a Middleware. Name, IsAvailable and Close are
// forwarded to the wrapped provider.
func Intercept[I, O any](fn Interceptor[I, O]) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &intercepted[I, O]{inner: inner, fn: fn}
	}
}

type intercepted[I, O any] struct {
	inner RequestResponse[I, O]
	fn    Interceptor[I, O]
}

func (w *intercepted[I, O]) Name() string                         { return w.inner.Name() }
func (w *intercepted[I, O]) IsAvailable(ctx context.Context) bool { return w.inner.IsAvailable(ctx) }
func (w *intercepted[I, O]) Close(ctx context.Context) error      { return closeInner(ctx, w.inner) }

func (w *intercepted[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return w.fn(ctx, w.inner.Name(), input, w.inner.Execute)
}
