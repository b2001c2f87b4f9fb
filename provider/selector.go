package provider

import (
	"context"
	"errors"
	"maps"
	"slices"
)

// ErrNoProvider is returned when no candidate is available.
var ErrNoProvider = errors.New("no available provider found")

// Selector picks one provider out of providers.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector tries the names in Priority in order. Providers not
// listed are never picked.
type PrioritySelector[T Provider] struct {
	Priority []string
}

func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	return firstAvailable(ctx, providers, s.Priority)
}

// HealthCheckSelector tries every provider in name order.
type HealthCheckSelector[T Provider] struct{}

func (s *HealthCheckSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	return firstAvailable(ctx, providers, slices.Sorted(maps.Keys(providers)))
}

func firstAvailable[T Provider](ctx context.Context, providers map[string]T, order []string) (T, error) {
	for _, name := range order {
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoProvider
}
