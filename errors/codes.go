package errors

import "net/http"

// ErrorCode is the machine-readable kind of an AppError.
type ErrorCode string

// Backend availability. All retryable.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Model calls.
const (
	ErrCodeUnknownModel     ErrorCode = "UNKNOWN_MODEL"
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrCodeEmptyResponse    ErrorCode = "EMPTY_RESPONSE"
	// ErrCodeUpstreamRejected is a backend 4xx other than 429.
	ErrCodeUpstreamRejected ErrorCode = "UPSTREAM_REJECTED"
)

// Caller mistakes.
const (
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField    ErrorCode = "MISSING_FIELD"
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
)

// ErrCodeInternal is anything not classified above.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeUnknownModel:       {http.StatusNotFound, false},
	ErrCodeGenerationFailed:   {http.StatusBadGateway, true},
	ErrCodeEmptyResponse:      {http.StatusBadGateway, false},
	ErrCodeUpstreamRejected:   {http.StatusBadGateway, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeMissingField:       {http.StatusBadRequest, false},
	ErrCodePayloadTooLarge:    {http.StatusRequestEntityTooLarge, false},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, false},
	ErrCodeForbidden:          {http.StatusForbidden, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether repeating the call may succeed.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}

// HTTPStatus is the status the gateway answers with for code.
// Unknown codes map to 500.
func (c ErrorCode) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
