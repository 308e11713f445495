package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

const (
	FormatText = "text"
	FormatJSON = "json"

	timeFormat = "2006-01-02 15:04:05.000"
)

// New builds the root logger. Text output goes through tint, anything else
// is treated as JSON.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: timeFormat,
			AddSource:  lvl == slog.LevelDebug,
		})
	}

	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Component tags logger with the emitting package.
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}
