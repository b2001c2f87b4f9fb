package observability

import (
	"context"
	"fmt"
)

// Component starts the OTLP tracer and meter providers on Start and
// flushes them on Stop. Disabled configs are a no-op.
type Component struct {
	cfg                           Config
	service, version, environment string
	shutdown                      func(context.Context) error
}

// NewComponent returns a telemetry lifecycle component.
func NewComponent(cfg Config, service, version, environment string) *Component {
	return &Component{cfg: cfg, service: service, version: version, environment: environment}
}

// Name returns "telemetry".
func (c *Component) Name() string { return "telemetry" }

// Start installs the global providers.
func (c *Component) Start(ctx context.Context) error {
	shutdown, err := Setup(ctx, c.cfg, c.service, c.version, c.environment)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	c.shutdown = shutdown
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	if c.shutdown == nil {
		return nil
	}
	return c.shutdown(ctx)
}

// Health is always up; export failures surface in the exporter logs.
func (c *Component) Health(context.Context) Health {
	h := Health{Name: c.Name(), Status: HealthStatusUp}
	if !c.cfg.Enabled {
		h.Message = "disabled"
	}
	return h
}
