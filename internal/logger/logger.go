// Package logger builds the structured logger used by the CLI and the query
// server. Diagnostics go to stderr so command output on stdout stays clean.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"docsqa/config"
)

// New returns a logger writing to w. verbose forces debug level regardless
// of the configured level.
func New(cfg config.LoggingConfig, w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, &config.ConfigError{Field: "logging.format", Reason: fmt.Sprintf("unknown format %q", cfg.Format)}
	}

	return slog.New(handler), nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, &config.ConfigError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", name)}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
