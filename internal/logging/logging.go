// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel names the environment variable that overrides the log level
const EnvLevel = "SENTCHECK_LOG_LEVEL"

var logLevel = new(slog.LevelVar)

// Configure installs a text handler writing to w as the default logger.
// The level is Warn, Debug when verbose is set, and SENTCHECK_LOG_LEVEL
// (DEBUG, INFO, WARN, ERROR) overrides both.
func Configure(w io.Writer, verbose bool) {
	logLevel.Set(slog.LevelWarn)
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}

	if lvl, ok := ParseLevel(os.Getenv(EnvLevel)); ok {
		logLevel.Set(lvl)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// Level returns the current level
func Level() slog.Level {
	return logLevel.Level()
}

// ParseLevel maps a level name to a slog level
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
