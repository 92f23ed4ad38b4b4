// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// Options selects the handler. Empty fields fall back to the environment
// (SOCWATCH_LOG_LEVEL, SOCWATCH_LOG_FORMAT) and then to text at info.
type Options struct {
	Level  string
	Format string // text | json
	Output io.Writer
}

// Init builds the logger, installs it as the slog default and returns it.
// Logs go to stderr: stdout carries triage output and the MCP stdio stream.
func Init(service string, opts Options) *slog.Logger {
	if opts.Level == "" {
		opts.Level = os.Getenv("SOCWATCH_LOG_LEVEL")
	}
	if opts.Format == "" {
		opts.Format = os.Getenv("SOCWATCH_LOG_FORMAT")
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	level.Set(ParseLevel(opts.Level))
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if IsJSON(opts.Format) {
		handler = slog.NewJSONHandler(opts.Output, hopts)
	} else {
		handler = slog.NewTextHandler(opts.Output, hopts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of the logger built by Init.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// IsJSON reports whether format selects the JSON handler.
func IsJSON(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "1", "true":
		return true
	}
	return false
}

// Discard returns a logger that drops everything. Used by tests and
// quiet CLI paths.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
