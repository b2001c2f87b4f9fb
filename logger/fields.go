package logger

// Field keys shared across packages.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldModel     = "model"
	FieldProvider  = "provider"
	FieldAttempt   = "attempt"
	FieldTokens    = "tokens"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	logger.Info("done", logger.Fields("model", "qwen", "tokens", 42))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// MergeWithError sets the error field on fields, allocating when nil.
func MergeWithError(fields map[string]any, err error) map[string]any {
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields[FieldError] = err.Error()
	return fields
}
