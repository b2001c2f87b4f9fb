package logger

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var global atomic.Pointer[Logger]

// Init replaces the global logger. Console formats also restyle zerolog's
// package logger so third-party zerolog output matches.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	l := New(&cfg, "default")
	global.Store(l)
	if isConsole(cfg.Format) {
		log.Logger = l.zl
	}
}

func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the global logger, installing NewDefault on first use.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, NewDefault("default"))
	return global.Load()
}

func Debug(msg string, fields ...map[string]any) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]any)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]any)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]any) { GetGlobalLogger().Error(msg, fields...) }

func WithContext(ctx context.Context) *Logger { return GetGlobalLogger().WithContext(ctx) }

func WithComponent(name string) *Logger { return GetGlobalLogger().WithComponent(name) }
