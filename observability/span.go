package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/kbukum/modelkit"

// SpanGenerate names the span around one model generation.
const SpanGenerate = "model.generate"

// Span attribute keys.
const (
	AttrServiceName      = attribute.Key("service.name")
	AttrOperationName    = attribute.Key("operation.name")
	AttrRequestID        = attribute.Key("request.id")
	AttrModel            = attribute.Key("llm.model")
	AttrPreset           = attribute.Key("modelkit.preset")
	AttrDialect          = attribute.Key("llm.dialect")
	AttrPromptTokens     = attribute.Key("llm.usage.prompt_tokens")
	AttrCompletionTokens = attribute.Key("llm.usage.completion_tokens")
)

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a span on the modelkit tracer with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan marks the span failed when err is non-nil and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil && span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Annotate adds attributes to the span active in ctx, if any.
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}
