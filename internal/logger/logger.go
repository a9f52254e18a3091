// Package logger builds the application's slog.Logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text logger at debug level in development and a JSON logger
// at info level otherwise. The result is also installed as the slog default,
// which the response helpers log through.
func New(development bool) *slog.Logger {
	logger := slog.New(newHandler(os.Stdout, development))
	slog.SetDefault(logger)
	return logger
}

func newHandler(w io.Writer, development bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if development {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
