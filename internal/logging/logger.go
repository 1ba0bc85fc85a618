// Package logging owns the process-wide diagnostic logger. Output always
// goes to stderr because stdout carries protocol traffic.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	logLevel = new(slog.LevelVar)
	logger   *slog.Logger
)

func init() {
	level := parseLogLevel(os.Getenv("DISCORD_MCP_DEBUG"))
	logLevel.Set(level)
	logger = New(os.Stderr)
}

// New builds a text logger on w that shares the global level.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	return logger
}

// SetLogLevel sets the global log level.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// parseLogLevel converts DISCORD_MCP_DEBUG environment variable values to slog levels.
// Mapping: 0=Error, 1=Warn, 2=Info, 3=Debug
// Default: Info if not set or invalid
func parseLogLevel(envVal string) slog.Level {
	switch envVal {
	case "0":
		return slog.LevelError
	case "1":
		return slog.LevelWarn
	case "2":
		return slog.LevelInfo
	case "3":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLevel accepts the names used in config files and flags
// (debug, info, warn, error). ok is false for anything else.
func ParseLevel(name string) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
