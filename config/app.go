package config

import (
	"fmt"

	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/server"
	"github.com/kbukum/modelkit/validation"
	"github.com/kbukum/modelkit/version"
)

// AppConfig is the full modelkit configuration file.
type AppConfig struct {
	Base          BaseConfig             `yaml:"base" mapstructure:"base"`
	Logging       logger.Config          `yaml:"logging" mapstructure:"logging"`
	Models        map[string]ModelConfig `yaml:"models" mapstructure:"models" validate:"dive"`
	DefaultModels []string               `yaml:"default_models" mapstructure:"default_models"`
	Server        server.Config          `yaml:"server" mapstructure:"server"`
	Observability observability.Config   `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults applies defaults to every section. A model without a
// preset uses its map key as the preset name.
func (c *AppConfig) ApplyDefaults() {
	if c.Base.Name == "" {
		c.Base.Name = "modelkit"
	}
	if c.Base.Version == "" {
		c.Base.Version = version.GetShortVersion()
	}
	c.Base.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
	for name, m := range c.Models {
		if m.Preset == "" {
			m.Preset = name
		}
		c.Models[name] = m
	}
}

// Validate runs section validators and the struct tags on models.
func (c *AppConfig) Validate() error {
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return err
	}
	for _, name := range c.DefaultModels {
		if _, ok := c.Models[name]; !ok {
			return fmt.Errorf("default_models: %q is not a configured model", name)
		}
	}
	return nil
}

// Load reads configuration for serviceName into cfg, then applies defaults
// and validates.
func Load(serviceName string, cfg *AppConfig, opts ...LoaderOption) error {
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// GetBaseConfig returns the base section.
func (c *AppConfig) GetBaseConfig() *BaseConfig { return &c.Base }

// GetLoggingConfig returns the logging section.
func (c *AppConfig) GetLoggingConfig() *logger.Config { return &c.Logging }
