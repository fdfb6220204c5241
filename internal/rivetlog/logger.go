// Package rivetlog builds the slog.Logger every Rivet binary starts with,
// mirroring the teacher's internal/app/logger.go: a level and a format
// ("text" or "json") select the handler, with no global logger set so
// callers stay in control of where it's threaded through (spec's ambient
// logging stack — see SPEC_FULL.md).
package rivetlog

import (
	"io"
	"log/slog"
)

// New builds a *slog.Logger for levelStr ∈ {debug,info,warn,error} and
// formatStr ∈ {text,json}, defaulting to info/text on anything else.
func New(levelStr, formatStr string, out io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}
