package visor

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/query"
)

// Logger wraps slog.Logger with visor-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// With returns a Logger with the given attributes added.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithQuery adds the session ID field to the logger.
func (l *Logger) WithQuery(id query.SessionID) *Logger {
	return l.With("qsid", string(id))
}

// WithEngine adds the engine field to the logger.
func (l *Logger) WithEngine(name string) *Logger {
	return l.With("engine", name)
}

// LogSubmit logs the decision taken for a submitted query.
func (l *Logger) LogSubmit(ctx context.Context, id query.SessionID, decision string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "submit failed",
			"qsid", string(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query submitted",
			"qsid", string(id),
			"decision", decision,
		)
	}
}

// LogExecution logs the end of an execution.
func (l *Logger) LogExecution(ctx context.Context, source string, items int, timings execution.Timings, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "execution failed",
			"source", source,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "execution completed",
			"source", source,
			"items", items,
			"processing", timings.Processing,
			"training", timings.Training,
			"ranking", timings.Ranking,
			"elapsed", elapsed,
		)
	}
}

// LogEviction logs a cache eviction.
func (l *Logger) LogEviction(id query.SessionID, reason string) {
	l.Debug("query evicted",
		"qsid", string(id),
		"reason", reason,
	)
}

// LogPage logs a page request.
func (l *Logger) LogPage(ctx context.Context, id query.SessionID, number, count int, err error) {
	if err != nil {
		l.DebugContext(ctx, "page request failed",
			"qsid", string(id),
			"page", number,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "page served",
			"qsid", string(id),
			"page", number,
			"pages", count,
		)
	}
}
