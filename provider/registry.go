package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps factory names to factories.
type Registry[T Provider, C any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T, C]
}

func NewRegistry[T Provider, C any]() *Registry[T, C] {
	return &Registry[T, C]{factories: make(map[string]Factory[T, C])}
}

// RegisterFactory replaces any factory already registered under name.
func (r *Registry[T, C]) RegisterFactory(name string, factory Factory[T, C]) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

func (r *Registry[T, C]) lookup(name string) (Factory[T, C], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

func (r *Registry[T, C]) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Create runs the factory registered under name.
func (r *Registry[T, C]) Create(name string, cfg C) (T, error) {
	factory, ok := r.lookup(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("provider factory %q not registered", name)
	}
	return factory(cfg)
}

// List returns the registered names, sorted.
func (r *Registry[T, C]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
