package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxBodyInMessage bounds how much of an upstream error body ends up in Error().
const maxBodyInMessage = 256

// ErrorCode classifies a failed call.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth       // 401, 403
	ErrCodeNotFound   // 404
	ErrCodeRateLimit  // 429
	ErrCodeValidation // other 4xx and requests that could not be built
	ErrCodeServer     // 5xx
)

var codeNames = [...]string{"timeout", "connection", "auth", "not_found", "rate_limit", "validation", "server"}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return "unknown"
	}
	return codeNames[c]
}

// Error is a classified transport or HTTP status failure.
type Error struct {
	StatusCode int // 0 when no response arrived
	Code       ErrorCode
	Message    string
	Retryable  bool
	// Body is the upstream response body; model APIs explain rejections there.
	Body []byte
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httpclient: ")
	b.WriteString(e.Code.String())
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if body := strings.TrimSpace(string(e.Body)); body != "" {
		if len(body) > maxBodyInMessage {
			body = body[:maxBodyInMessage] + "..."
		}
		b.WriteString(": ")
		b.WriteString(body)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NewTimeoutError wraps a deadline or client timeout.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError wraps a dial, DNS or read failure.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode returns the Error for a non-2xx status, or nil.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	e := &Error{StatusCode: statusCode, Message: fmt.Sprintf("HTTP %d", statusCode), Body: body}
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	default:
		e.Code = ErrCodeServer
		e.Retryable = statusCode >= 500
	}
	return e
}

// classifyResponse is ClassifyStatusCode plus header-derived hints.
func classifyResponse(statusCode int, header http.Header, body []byte) *Error {
	e := ClassifyStatusCode(statusCode, body)
	if e != nil {
		e.RetryAfter = parseRetryAfter(header.Get("Retry-After"), time.Now())
	}
	return e
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// RetryAfter extracts the server's Retry-After hint from err.
// It has the shape of resilience.RetryConfig.DelayFor.
func RetryAfter(err error) (time.Duration, bool) {
	if e, ok := asError(err); ok && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := asError(err)
	return ok && e.Code == code
}

func IsTimeout(err error) bool     { return hasCode(err, ErrCodeTimeout) }
func IsConnection(err error) bool  { return hasCode(err, ErrCodeConnection) }
func IsAuth(err error) bool        { return hasCode(err, ErrCodeAuth) }
func IsNotFound(err error) bool    { return hasCode(err, ErrCodeNotFound) }
func IsRateLimit(err error) bool   { return hasCode(err, ErrCodeRateLimit) }
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsRetryable reports a timeout, connection failure, 429 or 5xx.
func IsRetryable(err error) bool {
	e, ok := asError(err)
	return ok && e.Retryable
}

// IsBackendFailure reports errors that say the backend itself is unhealthy:
// 5xx responses, timeouts and failed connections. It is the default
// circuit breaker failure test.
func IsBackendFailure(err error) bool {
	return IsServerError(err) || IsTimeout(err) || IsConnection(err)
}
