package errors

import (
	"fmt"
	"maps"
	"strconv"
)

// AppError is the error type surfaced to CLI and gateway callers.
type AppError struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	// HTTPStatus defaults to Code.HTTPStatus().
	HTTPStatus int   `json:"-"`
	Cause      error `json:"-"`
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += " (cause: " + e.Cause.Error() + ")"
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying error and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e and returns e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New builds an AppError whose status and retryability follow code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Retryable:  IsRetryableCode(code),
		HTTPStatus: code.HTTPStatus(),
	}
}

// ServiceUnavailable reports a backend that is down or shedding load.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable,
		fmt.Sprintf("The %s backend is temporarily unavailable. Please try again.", service)).
		WithDetail("service", service)
}

// ConnectionFailed reports a backend that could not be reached.
func ConnectionFailed(service string) *AppError {
	return New(ErrCodeConnectionFailed,
		fmt.Sprintf("Unable to connect to %s. Please verify the inference server is running.", service)).
		WithDetail("service", service)
}

func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The request took too long. Please try again.").
		WithDetail("operation", operation)
}

// RateLimited reports a 429. The service detail is omitted when empty.
func RateLimited(service string) *AppError {
	e := New(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
	if service != "" {
		e.WithDetail("service", service)
	}
	return e
}

func UnknownModel(name string) *AppError {
	return New(ErrCodeUnknownModel, "Unknown model "+strconv.Quote(name)+".").
		WithDetail("model", name)
}

func GenerationFailed(model string, cause error) *AppError {
	return New(ErrCodeGenerationFailed, "Generation with "+model+" failed.").
		WithDetail("model", model).
		WithCause(cause)
}

func EmptyResponse(model string) *AppError {
	return New(ErrCodeEmptyResponse, model+" returned an empty response.").
		WithDetail("model", model)
}

// UpstreamRejected reports a backend refusing the request with status.
func UpstreamRejected(service string, status int, cause error) *AppError {
	return New(ErrCodeUpstreamRejected,
		fmt.Sprintf("The %s backend rejected the request (HTTP %d).", service, status)).
		WithDetails(map[string]any{"service": service, "status": status}).
		WithCause(cause)
}

// InvalidInput names the offending field when field is non-empty.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation is an InvalidInput without a single offending field.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, "Missing required field: "+field).
		WithDetail("field", field)
}

// PayloadTooLarge reports a request body above limit bytes.
func PayloadTooLarge(limit int64) *AppError {
	return New(ErrCodePayloadTooLarge, "Request body too large.").
		WithDetail("limit_bytes", limit)
}

// Unauthorized defaults reason to "Authentication required.".
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason)
}

// Forbidden reports an authenticated caller without access to resource.
func Forbidden(resource string) *AppError {
	return New(ErrCodeForbidden, "Access to "+resource+" is not allowed.")
}

// Internal hides cause from the message; it stays reachable via Unwrap.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}
