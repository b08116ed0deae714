// Package logging holds the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

var logger = newLogger(slog.LevelInfo)

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:   level,
		NoColor: !term.IsTerminal(int(os.Stderr.Fd())),
	}))
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger
}

// Setup reconfigures the process logger for the given level name. Unknown
// names fall back to info.
func Setup(level string) {
	logger = newLogger(ParseLevel(level))
	slog.SetDefault(logger)
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
