package telemetry

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger builds the process logger. Level "off" discards everything.
// Output is text on a terminal and JSON when captured.
func NewLogger(w io.Writer, level string) *slog.Logger {
	if level == "off" {
		return slog.New(slog.DiscardHandler)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
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
