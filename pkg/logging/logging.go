// Package logging configures structured logging for log/slog.
//
// Usage:
//
//	logging.Setup()                                // from LOG_LEVEL and LOG_FORMAT env
//	logging.SetupWithLevel(slog.LevelDebug)        // explicit level override
//	logging.Configure(os.Stderr, "debug", "json")  // explicit everything
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
//	LOG_FORMAT: text (colored, default) or json
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup configures logging from the LOG_LEVEL and LOG_FORMAT env vars.
func Setup() {
	Configure(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(New(os.Stderr, level, "text"))
}

// Configure installs the default logger writing to w.
func Configure(w io.Writer, level, format string) {
	slog.SetDefault(New(w, ParseLevel(level), format))
}

// New builds a logger. format "json" selects slog's JSON handler; anything
// else selects tint.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
		NoColor:    !isTerminal(w),
	}))
}

// ParseLevel maps a LOG_LEVEL value to a slog level (default: info).
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
