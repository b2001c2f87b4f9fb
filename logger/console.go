package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

var levelStyles = map[string]struct {
	tag   string
	color *color.Color
}{
	"debug": {"[DBG]", color.New(color.FgCyan)},
	"info":  {"[INF]", color.New(color.FgGreen)},
	"warn":  {"[WRN]", color.New(color.FgYellow)},
	"error": {"[ERR]", color.New(color.FgRed)},
	"fatal": {"[FTL]", color.New(color.FgMagenta)},
}

var serviceColor = color.New(color.FgBlue)

func levelTag(level string, noColor bool) string {
	s, ok := levelStyles[strings.ToLower(level)]
	switch {
	case !ok:
		return "[" + strings.ToUpper(level) + "]"
	case noColor:
		return s.tag
	default:
		return s.color.Sprint(s.tag)
	}
}

// serviceTag abbreviates service to three letters, e.g. "models" to "[MOD]".
func serviceTag(service string, noColor bool) string {
	if len(service) < 3 || service == "default" {
		return ""
	}
	tag := "[" + strings.ToUpper(service[:3]) + "]"
	if noColor {
		return tag
	}
	return serviceColor.Sprint(tag)
}

func consoleWriter(cfg *Config, service string, w io.Writer) zerolog.ConsoleWriter {
	prefix := serviceTag(service, cfg.NoColor)
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i any) string {
			if i == nil {
				return prefix
			}
			return prefix + levelTag(fmt.Sprint(i), cfg.NoColor)
		},
		FormatFieldName: func(i any) string { return fmt.Sprint(i) + ":" },
		FormatFieldValue: func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
	}
}
