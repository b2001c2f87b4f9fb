package util

import (
	"math"

	"github.com/dustin/go-humanize"
)

// ParseSize parses sizes such as "10MB" (SI), "512KiB" (IEC) or a plain
// byte count. Blank or unparsable input yields defaultBytes.
func ParseSize(s string, defaultBytes int64) int64 {
	n, err := humanize.ParseBytes(s)
	if err != nil || n > math.MaxInt64 {
		return defaultBytes
	}
	return int64(n)
}

// MaskSecret keeps visiblePrefix characters of an API key for display.
// Short keys are masked entirely.
func MaskSecret(s string, visiblePrefix int) string {
	if len(s) <= visiblePrefix {
		return "***"
	}
	return s[:visiblePrefix] + "***"
}
