// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger used throughout the application.
var Logger = NewLogger(os.Stderr, "development", "info")

type contextKey string

// Context keys picked up by the context-aware handler.
const (
	RequestIDKey contextKey = "request_id"
	TraceIDKey   contextKey = "trace_id"
)

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a context-aware logger: JSON in production, text otherwise.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

// SetLogger replaces the global logger.
func SetLogger(l *slog.Logger) {
	Logger = l
}

// ParseLevel maps a LOG_LEVEL value to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// WithRequestID returns a new context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// StoreLogger provides structured logging for store actions.
type StoreLogger struct {
	resource string
}

// NewStoreLogger creates a StoreLogger for the given resource.
func NewStoreLogger(resource string) *StoreLogger {
	return &StoreLogger{resource: resource}
}

// LogSuccess logs a completed action.
func (l *StoreLogger) LogSuccess(ctx context.Context, action string, fields ...any) {
	attrs := append([]any{
		slog.String("resource", l.resource),
		slog.String("action", action),
	}, fields...)
	Logger.DebugContext(ctx, "store action succeeded", attrs...)
}

// LogFailure logs a failed action.
func (l *StoreLogger) LogFailure(ctx context.Context, action string, err error) {
	Logger.WarnContext(ctx, "store action failed",
		slog.String("resource", l.resource),
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}

// LogStale logs a response discarded because a newer one was already applied.
func (l *StoreLogger) LogStale(ctx context.Context, action string, seq, applied uint64) {
	Logger.InfoContext(ctx, "discarded stale response",
		slog.String("resource", l.resource),
		slog.String("action", action),
		slog.Uint64("seq", seq),
		slog.Uint64("applied", applied),
	)
}

// LogStorageError logs a durable storage failure.
func (l *StoreLogger) LogStorageError(ctx context.Context, op, key string, err error) {
	Logger.WarnContext(ctx, "storage error",
		slog.String("resource", l.resource),
		slog.String("operation", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
