// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options selects the log level, format and destination.
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// ParseLevel maps debug, info, warn and error (any case) to a level. ok is
// false for anything else.
func ParseLevel(s string) (level log.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, true
	case "info", "":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	default:
		return log.InfoLevel, false
	}
}

// Setup builds a charmbracelet/log handler and installs it as the slog
// default. An unknown level falls back to info with a warning.
func Setup(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level, ok := ParseLevel(opts.Level)

	h := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	if opts.JSON {
		h.SetFormatter(log.JSONFormatter)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	if !ok {
		logger.Warn("invalid log level, falling back to info", "level", opts.Level)
	}
	return logger
}
