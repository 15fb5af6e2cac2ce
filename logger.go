package shapeclust

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with consistent field names for pipeline output.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, uses a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger writing human-readable lines to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger writing JSON lines to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithMetric tags subsequent records with the metric code.
func (l *Logger) WithMetric(m Metric) *Logger {
	return &Logger{Logger: l.Logger.With("metric", m.Code())}
}

// WithBatch tags subsequent records with a batch name.
func (l *Logger) WithBatch(name string) *Logger {
	return &Logger{Logger: l.Logger.With("batch", name)}
}

// orNoop returns l, or a discarding logger when l is nil.
func (l *Logger) orNoop() *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}
