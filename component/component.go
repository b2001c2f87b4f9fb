package component

import (
	"context"

	"github.com/kbukum/modelkit/observability"
)

// Component is a part of the process with a start/stop lifecycle.
type Component interface {
	// Name returns the unique registration name.
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Health reports the component's current state.
	Health(ctx context.Context) observability.Health
}

// Description is what the startup summary prints for a component.
type Description struct {
	// Name is the display name; empty means Component.Name.
	Name string
	// Type groups components in the summary, e.g. "server" or "catalog".
	Type string
	// Details is a one-line configuration summary, e.g. "3 models".
	Details string
	Port    int
}

// Describable is implemented by components that describe themselves in the
// startup summary.
type Describable interface {
	Describe() Description
}

// Route is one HTTP route for the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is implemented by components that serve HTTP routes.
type RouteProvider interface {
	Routes() []Route
}
