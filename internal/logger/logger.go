package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// ParseLogLevel converts a string log level to slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// InitLogger creates a logger with the specified log level.
// Uses colourized text on stderr for the dev environment, otherwise JSON on stdout.
func InitLogger(logLevel slog.Level, environment string) *slog.Logger {
	if environment == "dev" {
		return NewTextLogger(os.Stderr, logLevel)
	}
	return slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}))
}

// NewTextLogger returns a tint logger writing to w. CLI commands use it on stderr so stdout stays clean for output.
func NewTextLogger(w io.Writer, logLevel slog.Level) *slog.Logger {
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
			NoColor:    !isTerminal(w),
		}),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
