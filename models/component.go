package models

import (
	"context"
	"fmt"

	"github.com/kbukum/modelkit/component"
	"github.com/kbukum/modelkit/config"
	"github.com/kbukum/modelkit/observability"
)

// catalogComponent builds the configured models on Start and closes them
// on Stop.
type catalogComponent struct {
	catalog *Catalog
	cfg     *config.AppConfig
}

// Component returns the catalog as a lifecycle component over cfg.Models.
func (c *Catalog) Component(cfg *config.AppConfig) component.Component {
	return &catalogComponent{catalog: c, cfg: cfg}
}

func (cc *catalogComponent) Name() string { return "models" }

func (cc *catalogComponent) Start(context.Context) error { return cc.catalog.Build(cc.cfg) }

func (cc *catalogComponent) Stop(ctx context.Context) error { return cc.catalog.Close(ctx) }

// Health is degraded when any configured model's backend is unreachable
// and down when no model is configured.
func (cc *catalogComponent) Health(ctx context.Context) observability.Health {
	h := observability.Health{Name: cc.Name(), Status: observability.HealthStatusUp}
	names := cc.catalog.Configured()
	if len(names) == 0 {
		h.Status = observability.HealthStatusDown
		h.Message = "no models configured"
		return h
	}
	var unreachable int
	for _, name := range names {
		if m, err := cc.catalog.Get(name); err != nil || !m.IsAvailable(ctx) {
			unreachable++
		}
	}
	if unreachable > 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = fmt.Sprintf("%d of %d backends unreachable", unreachable, len(names))
	}
	return h
}

func (cc *catalogComponent) Describe() component.Description {
	return component.Description{
		Name:    "Model catalog",
		Type:    "catalog",
		Details: fmt.Sprintf("%d models, %d presets", len(cc.cfg.Models), len(cc.catalog.Presets())),
	}
}
