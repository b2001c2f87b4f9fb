// Package validation checks model configuration and gateway requests
// against `validate:"..."` struct tags.
//
//	type ModelConfig struct {
//	    Preset  string `mapstructure:"preset" validate:"required"`
//	    BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
//	}
//	err := validation.Validate(cfg)
//
// Failures are an *errors.AppError with code INVALID_INPUT, a message
// listing every field and a "fields" detail of []FieldError.
package validation
