// Package logger installs the process-wide slog handler.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup builds a JSON or text logger at the given level, writing to stdout, and
// sets it as the slog default.
func Setup(level slog.Level, json bool) *slog.Logger {
	return SetupWriter(os.Stdout, level, json)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithCampaign tags a logger with the campaign it serves.
func WithCampaign(logger *slog.Logger, id, seed string) *slog.Logger {
	return logger.With("campaign", id, "seed", seed)
}
