// Package logging builds the gateway's structured logger.
package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON slog.Logger writing to stderr at info level.
// Level can be lowered to debug via the APIGW_LOG_LEVEL env var.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("APIGW_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
