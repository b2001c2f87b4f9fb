package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Output formats accepted by Config.Format besides "json".
const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
)

// Logger is a zerolog logger that takes its fields as maps.
type Logger struct {
	zl zerolog.Logger
}

// New builds a logger writing to cfg.Output.
func New(cfg *Config, service string) *Logger {
	return NewWithWriter(cfg, service, outputWriter(cfg.Output))
}

// NewWithWriter is New with an explicit destination; Output is ignored.
// An unparsable level falls back to info.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zc zerolog.Context
	if isConsole(cfg.Format) {
		zc = zerolog.New(consoleWriter(cfg, service, w)).With()
	} else {
		zc = zerolog.New(w).With()
		if service != "" && service != "default" {
			zc = zc.Str(FieldService, service)
		}
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger().Level(level)}
}

// NewDefault logs info and above to stderr in console format.
func NewDefault(service string) *Logger {
	cfg := Config{}
	cfg.ApplyDefaults()
	return New(&cfg, service)
}

func (l *Logger) with(zc zerolog.Context) *Logger { return &Logger{zl: zc.Logger()} }

// WithComponent tags every line with component=name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(l.zl.With().Str(FieldComponent, name))
}

// WithFields attaches fields to every line.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.with(l.zl.With().Fields(fields))
}

func (l *Logger) WithError(err error) *Logger {
	return l.with(l.zl.With().Err(err))
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { emit(l.zl.Error(), msg, fields) }

// emit tolerates a nil event, which zerolog returns for disabled levels.
func emit(ev *zerolog.Event, msg string, fields []map[string]any) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

func isConsole(format string) bool {
	switch strings.ToLower(format) {
	case FormatConsole, FormatPretty, "text":
		return true
	}
	return false
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}
