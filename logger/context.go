package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	modelKey
)

// ContextWithRequestID stores id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithModel stores the model name for WithContext.
func ContextWithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, modelKey, model)
}

// WithContext adds the request id, model name and the active span's
// trace and span ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	if id := RequestIDFromContext(ctx); id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	if model, ok := ctx.Value(modelKey).(string); ok {
		zc = zc.Str(FieldModel, model)
	}
	return l.with(zc)
}
