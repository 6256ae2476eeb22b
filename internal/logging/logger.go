package logging

import (
	"io"
	"log/slog"
	"os"
	"sort"
)

// Logger is the structured logger shared by every component.
// It embeds *slog.Logger so Info/Warn/Error/Debug/Log are available directly.
type Logger struct {
	*slog.Logger
}

// NewLogger builds a text logger at debug level in development and a JSON logger at info level otherwise.
func NewLogger(isDev bool) *Logger {
	return NewLoggerWithWriter(os.Stdout, isDev)
}

// NewLoggerWithWriter is NewLogger with an explicit destination.
func NewLoggerWithWriter(w io.Writer, isDev bool) *Logger {
	var h slog.Handler
	if isDev {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(h)}
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithFields returns a child logger carrying the given fields on every record.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if len(fields) == 0 {
		return l
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	return &Logger{Logger: l.Logger.With(args...)}
}
