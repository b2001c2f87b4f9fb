package logger

import (
	"fmt"
	"slices"
)

// Config selects level, format and destination.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	validFormats = []string{"json", FormatConsole, "text", FormatPretty}
	validOutputs = []string{"stdout", "stderr"}
)

// ApplyDefaults picks info, console and stderr, keeping stdout free for
// generated text. Timestamps are always on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

func (c *Config) Validate() error {
	for _, check := range []struct {
		key, val string
		allowed  []string
	}{
		{"level", c.Level, validLevels},
		{"format", c.Format, validFormats},
		{"output", c.Output, validOutputs},
	} {
		if !slices.Contains(check.allowed, check.val) {
			return fmt.Errorf("logging.%s must be one of %v (got: %q)", check.key, check.allowed, check.val)
		}
	}
	return nil
}
