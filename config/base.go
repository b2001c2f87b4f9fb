package config

import (
	"fmt"
	"slices"
)

// Environments accepted in BaseConfig.Environment.
var Environments = []string{"development", "staging", "production"}

// BaseConfig names the running service for logs, telemetry and /info.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Version overrides the build version reported by the service.
	Version string `yaml:"version" mapstructure:"version"`
}

func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = Environments[0]
	}
}

func (c *BaseConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("base.name is required")
	case !slices.Contains(Environments, c.Environment):
		return fmt.Errorf("base.environment must be one of %v (got: %q)", Environments, c.Environment)
	}
	return nil
}
