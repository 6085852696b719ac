package logger

import (
	"log/slog"
	"os"
)

// New returns the root slog logger. JSON output when DOMOPASS_LOG_FORMAT=json,
// text otherwise; level defaults to info.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DOMOPASS_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if os.Getenv("DOMOPASS_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
