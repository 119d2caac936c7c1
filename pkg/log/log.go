// Package log builds the zerolog loggers used across the relay. It keeps the
// construction policy (level parsing, console vs JSON output) in one place so
// the CLI, tests, and services agree on defaults.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ParseLevel maps a config/env string onto a zerolog level. Empty input
// means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger at the given level. format is "console" for
// human-readable output or "json" for structured output; anything else
// defaults to console.
func New(w io.Writer, level zerolog.Level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Nop returns a disabled logger for tests.
func Nop() zerolog.Logger { return zerolog.Nop() }

// Component tags a child logger with a component name, the convention every
// service in this repo follows.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
