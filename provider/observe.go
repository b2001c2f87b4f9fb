package provider

import (
	"context"
	"time"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/observability"
)

// WithLogging logs each call with provider name and duration: debug on
// success, warn with the error code on failure.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return Intercept(func(ctx context.Context, name string, in I, next func(context.Context, I) (O, error)) (O, error) {
		start := time.Now()
		out, err := next(ctx, in)

		fields := logger.Fields(
			logger.FieldProvider, name,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		)
		l := log.WithContext(ctx)
		if err == nil {
			l.Debug("provider execute ok", fields)
			return out, nil
		}
		fields = logger.MergeWithError(fields, err)
		if code := errorCode(err); code != "" {
			fields["code"] = code
		}
		l.Warn("provider execute failed", fields)
		return out, err
	})
}

// WithTracing opens a span named "{service}.{provider}" per call.
func WithTracing[I, O any](service string) Middleware[I, O] {
	return Intercept(func(ctx context.Context, name string, in I, next func(context.Context, I) (O, error)) (O, error) {
		ctx, span := observability.StartSpan(ctx, service+"."+name,
			observability.AttrServiceName.String(service),
			observability.AttrOperationName.String(name),
		)
		out, err := next(ctx, in)
		observability.EndSpan(span, err)
		return out, err
	})
}

// WithMetrics records call count and latency per provider, and errors by
// code.
func WithMetrics[I, O any](metrics *observability.Metrics) Middleware[I, O] {
	return Intercept(func(ctx context.Context, name string, in I, next func(context.Context, I) (O, error)) (O, error) {
		start := time.Now()
		out, err := next(ctx, in)
		status := "ok"
		if err != nil {
			status = "error"
			code := errorCode(err)
			if code == "" {
				code = "unknown"
			}
			metrics.RecordError(ctx, code, name)
		}
		metrics.RecordOperation(ctx, name, "execute", status, time.Since(start))
		return out, err
	})
}

func errorCode(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	return ""
}
