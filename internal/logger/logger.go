package logger

import (
	"log/slog"
	"os"
	"strings"
)

const serviceName = "filedepot"

// Init builds the process logger from APP_ENV and LOG_LEVEL. Production
// defaults to info-level JSON, everything else to debug-level text.
func Init() *slog.Logger {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		if env == "production" {
			level = "info"
		} else {
			level = "debug"
		}
	}

	return New(env, level)
}

func New(env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(slog.String("service", serviceName))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
