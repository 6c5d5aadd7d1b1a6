package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	FormatAuto = "auto"
	FormatJSON = "json"
	FormatText = "text"
)

// New builds the process logger. The auto format picks text on a terminal and JSON otherwise.
func New(level string, format string) *slog.Logger {
	return newWithWriter(os.Stdout, level, resolveFormat(format, isatty.IsTerminal(os.Stdout.Fd())))
}

func newWithWriter(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

func resolveFormat(format string, terminal bool) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return FormatJSON
	case FormatText:
		return FormatText
	default:
		if terminal {
			return FormatText
		}
		return FormatJSON
	}
}

func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
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
