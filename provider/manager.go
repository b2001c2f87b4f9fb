package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kbukum/modelkit/logger"
)

// Manager holds initialized providers by instance name and picks one with a
// Selector when the caller does not name one.
type Manager[T Provider, C any] struct {
	mu        sync.RWMutex
	registry  *Registry[T, C]
	selector  Selector[T]
	providers map[string]T
	log       *logger.Logger
}

// NewManager creates a Manager backed by registry and selector.
func NewManager[T Provider, C any](registry *Registry[T, C], selector Selector[T]) *Manager[T, C] {
	return &Manager[T, C]{
		registry:  registry,
		selector:  selector,
		providers: make(map[string]T),
		log:       logger.Get("provider"),
	}
}

// Initialize creates a provider from the factory named factory and stores
// it as name.
func (m *Manager[T, C]) Initialize(name, factory string, cfg C) error {
	instance, err := m.registry.Create(factory, cfg)
	if err != nil {
		return fmt.Errorf("initialize provider %q: %w", name, err)
	}
	m.Add(name, instance)
	m.log.Debug("provider initialized", logger.Fields(logger.FieldProvider, name, "factory", factory))
	return nil
}

// Add stores an already-built provider as name.
func (m *Manager[T, C]) Add(name string, instance T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = instance
}

// Get returns a provider chosen by the selector.
func (m *Manager[T, C]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	providers, selector := maps.Clone(m.providers), m.selector
	m.mu.RUnlock()
	return selector.Select(ctx, providers)
}

// GetByName returns the provider stored as name.
func (m *Manager[T, C]) GetByName(name string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[name]
	return p, ok
}

// SetSelector replaces the selector used by Get.
func (m *Manager[T, C]) SetSelector(s Selector[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selector = s
}

// Available returns the sorted names of all initialized providers.
func (m *Manager[T, C]) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.providers))
}

// Close closes every provider implementing Closeable and joins the errors.
func (m *Manager[T, C]) Close(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(m.providers)) {
		if err := closeInner(ctx, m.providers[name]); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
