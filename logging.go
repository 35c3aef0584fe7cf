package ledger

import (
	"log/slog"
	"os"
	"time"
)

var globalLogger *slog.Logger

// ConfigureLogging sets up the package-level structured logger. level is
// one of "debug", "info", "warn", "error"; anything else falls back to
// "info".
func ConfigureLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("timestamp", a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	})
	globalLogger = slog.New(handler).With("component", "ledger")
}

// GetLogger returns the package-level logger, configuring it at "info"
// level on first use if ConfigureLogging was never called.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		ConfigureLogging("info")
	}
	return globalLogger
}
