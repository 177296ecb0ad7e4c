package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the slog logger the api and indexer binaries
// share. Every line carries the app and service attrs so the two
// processes can be told apart in a merged log stream.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("app", "tendersearch", "service", service)
}

// parseLevel accepts the usual spellings and falls back to info, so a
// misconfigured LOG_LEVEL never silences the service.
func parseLevel(level string) slog.Level {
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
