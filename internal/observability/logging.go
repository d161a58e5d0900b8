package observability

import (
	"io"
	"log/slog"
	"os"
)

// LogConfig configures slog output.
type LogConfig struct {
	// Level is "debug", "info", "warn", or "error". Defaults to info.
	Level string

	// Format is "text" or "json". Defaults to text.
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// NewLogger builds a slog.Logger from the config.
func NewLogger(config LogConfig) *slog.Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	var level slog.Level
	switch config.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}
