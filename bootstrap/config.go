package bootstrap

import (
	"github.com/kbukum/modelkit/config"
	"github.com/kbukum/modelkit/logger"
)

// Config is the constraint on application configuration types.
// *config.AppConfig satisfies it.
type Config interface {
	GetBaseConfig() *config.BaseConfig
	GetLoggingConfig() *logger.Config
	ApplyDefaults()
	Validate() error
}
