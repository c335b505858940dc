package main

import (
	"io"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/go-chi/httplog/v3"
)

// newLogger writes ECS-shaped JSON outside development and plain text otherwise.
func newLogger(w io.Writer, app config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(app.LogLevel)}

	var handler slog.Handler
	if app.Env == "development" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		opts.ReplaceAttr = httplog.SchemaECS.Concise(false).ReplaceAttr
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", app.Env),
	)
}

func parseLevel(level string) slog.Level {
	switch level {
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
