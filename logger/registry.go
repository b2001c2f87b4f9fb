package logger

import "sync"

// Component loggers are derived from the global logger and cached per name.
// The cache is dropped when the global logger changes, so loggers fetched
// after Init carry the new level and format. Register pins a logger to a
// name regardless of the global one.
var registry = struct {
	mu      sync.Mutex
	base    *Logger
	derived map[string]*Logger
	pinned  map[string]*Logger
}{
	derived: make(map[string]*Logger),
	pinned:  make(map[string]*Logger),
}

// Register pins l to name; Get(name) returns it until Unregister.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.pinned[name] = l
}

// Unregister removes a pinned logger.
func Unregister(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.pinned, name)
}

// Get returns the logger for a component: the pinned one, else the global
// logger tagged with component=name.
func Get(name string) *Logger {
	global := GetGlobalLogger()

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if l, ok := registry.pinned[name]; ok {
		return l
	}
	if registry.base != global {
		registry.base = global
		clear(registry.derived)
	}
	l, ok := registry.derived[name]
	if !ok {
		l = global.WithComponent(name)
		registry.derived[name] = l
	}
	return l
}
