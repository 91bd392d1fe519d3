package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the root structured logger. Level comes from LOG_LEVEL
// (debug|info|warn|error, default info); output is JSON on stdout so log
// shippers get one event per line.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
