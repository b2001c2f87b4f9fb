package models

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/httpclient"
	"github.com/kbukum/modelkit/llm"
	"github.com/kbukum/modelkit/resilience"
)

// mapError converts a backend failure into an AppError. Errors that are
// already AppErrors pass through.
func mapError(model string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, llm.ErrEmptyResponse) {
		return apperrors.EmptyResponse(model).WithCause(err)
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.ServiceUnavailable(model).WithCause(err)
	}
	if errors.Is(err, resilience.ErrRateLimited) {
		return apperrors.RateLimited(model).WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("generate " + model).WithCause(err)
	}

	var he *httpclient.Error
	if errors.As(err, &he) {
		switch {
		case he.Code == httpclient.ErrCodeRateLimit:
			return apperrors.RateLimited(model).WithCause(err)
		case he.Code == httpclient.ErrCodeTimeout:
			return apperrors.Timeout("generate " + model).WithCause(err)
		case he.Code == httpclient.ErrCodeConnection:
			return apperrors.ConnectionFailed(model).WithCause(err)
		case he.StatusCode >= 400 && he.StatusCode < 500:
			return apperrors.UpstreamRejected(model, he.StatusCode, err)
		}
	}
	return apperrors.GenerationFailed(model, err)
}
