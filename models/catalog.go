package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/modelkit/config"
	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/provider"
	"github.com/kbukum/modelkit/validation"
)

// Catalog maps preset names to factories and holds the models built from
// configuration.
//
//	cat := models.NewCatalog(models.Deps{})
//	if err := cat.Build(cfg); err != nil { ... }
//	m, err := cat.Get("groq-qwen")
type Catalog struct {
	mu       sync.RWMutex
	presets  map[string]Preset
	order    []string
	registry *provider.Registry[Model, Spec]
	manager  *provider.Manager[Model, Spec]
	deps     Deps
	log      *logger.Logger
}

// NewCatalog returns a Catalog holding the built-in presets.
func NewCatalog(deps Deps) *Catalog {
	registry := provider.NewRegistry[Model, Spec]()
	c := &Catalog{
		presets:  make(map[string]Preset),
		registry: registry,
		manager:  provider.NewManager[Model, Spec](registry, &provider.HealthCheckSelector[Model]{}),
		deps:     deps,
		log:      logger.Get("models"),
	}
	for _, p := range builtinPresets() {
		c.RegisterPreset(p)
	}
	return c
}

// RegisterPreset adds or replaces a preset and its factory.
func (c *Catalog) RegisterPreset(p Preset) {
	c.mu.Lock()
	if _, ok := c.presets[p.Name]; !ok {
		c.order = append(c.order, p.Name)
	}
	c.presets[p.Name] = p
	c.mu.Unlock()

	c.registry.RegisterFactory(p.Name, func(spec Spec) (Model, error) {
		return newModel(p, spec)
	})
}

// Register adds a factory that is not backed by a preset.
func (c *Catalog) Register(name string, f Factory) {
	c.registry.RegisterFactory(name, f)
}

// Preset returns the preset registered as name.
func (c *Catalog) Preset(name string) (Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.presets[name]
	return p, ok
}

// Presets returns the presets in registration order.
func (c *Catalog) Presets() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Preset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.presets[name])
	}
	return out
}

// Names returns the sorted names of every registered factory.
func (c *Catalog) Names() []string { return c.registry.List() }

// New builds a model from the factory name without keeping it. cfg.Preset
// defaults to name.
func (c *Catalog) New(name string, cfg config.ModelConfig) (Model, error) {
	if cfg.Preset == "" {
		cfg.Preset = name
	}
	if !c.registry.Has(cfg.Preset) {
		return nil, apperrors.UnknownModel(cfg.Preset)
	}
	if err := validation.Validate(cfg); err != nil {
		return nil, err
	}
	return c.registry.Create(cfg.Preset, Spec{Name: name, Config: cfg, Deps: c.deps})
}

// Build creates every model in cfg.Models and sets the default order.
// Models built before a failure are closed.
func (c *Catalog) Build(cfg *config.AppConfig) error {
	names := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mc := cfg.Models[name]
		if mc.Preset == "" {
			mc.Preset = name
		}
		if !c.registry.Has(mc.Preset) {
			_ = c.Close(context.Background())
			return fmt.Errorf("models.%s: %w", name, apperrors.UnknownModel(mc.Preset))
		}
		if err := c.manager.Initialize(name, mc.Preset, Spec{Name: name, Config: mc, Deps: c.deps}); err != nil {
			_ = c.Close(context.Background())
			return fmt.Errorf("models.%s: %w", name, err)
		}
		c.log.Debug("model configured", logger.Fields(logger.FieldModel, name, "preset", mc.Preset))
	}

	c.manager.SetSelector(&provider.PrioritySelector[Model]{Priority: defaultOrder(cfg)})
	return nil
}

// defaultOrder is DefaultModels when set, otherwise every model by
// descending Priority and then by name.
func defaultOrder(cfg *config.AppConfig) []string {
	if len(cfg.DefaultModels) > 0 {
		return append([]string(nil), cfg.DefaultModels...)
	}
	names := make([]string, 0, len(cfg.Models))
	for name := range cfg.Models {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := cfg.Models[names[i]].Priority, cfg.Models[names[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
	return names
}

// Add stores a model built elsewhere under its name.
func (c *Catalog) Add(m Model) { c.manager.Add(m.Name(), m) }

// Get returns the configured model name.
func (c *Catalog) Get(name string) (Model, error) {
	m, ok := c.manager.GetByName(name)
	if !ok {
		return nil, apperrors.UnknownModel(name)
	}
	return m, nil
}

// Default returns the first available model in default order.
func (c *Catalog) Default(ctx context.Context) (Model, error) {
	m, err := c.manager.Get(ctx)
	if errors.Is(err, provider.ErrNoProvider) {
		return nil, apperrors.ServiceUnavailable("models")
	}
	return m, err
}

// Configured returns the sorted names of the built models.
func (c *Catalog) Configured() []string { return c.manager.Available() }

// Describe returns the Info of a configured model. Models from custom
// factories report only their name.
func (c *Catalog) Describe(name string) (Info, error) {
	m, err := c.Get(name)
	if err != nil {
		return Info{}, err
	}
	return Describe(m), nil
}

// Describe returns m's Info when it has one.
func Describe(m Model) Info {
	if d, ok := m.(interface{ Info() Info }); ok {
		return d.Info()
	}
	return Info{Name: m.Name()}
}

// Close releases every configured model.
func (c *Catalog) Close(ctx context.Context) error { return c.manager.Close(ctx) }
