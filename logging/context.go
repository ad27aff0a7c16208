package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	editIDKey ctxKey = iota
	operationKey
)

// WithEditID returns a context with the edit correlation ID set.
func WithEditID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, editIDKey, id)
}

// WithOperation returns a context with the edit operation name set.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey, name)
}

// EditID extracts the edit ID from the context, or "" if absent.
func EditID(ctx context.Context) string {
	v, _ := ctx.Value(editIDKey).(string)
	return v
}

// Operation extracts the operation name from the context, or "" if absent.
func Operation(ctx context.Context) string {
	v, _ := ctx.Value(operationKey).(string)
	return v
}

// LogWith returns a logger enriched with the correlation values in ctx.
// Only non-empty values are added.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := EditID(ctx); id != "" {
		logger = logger.With(slog.String("edit_id", id))
	}
	if op := Operation(ctx); op != "" {
		logger = logger.With(slog.String("op", op))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler and adds the correlation values
// in the record's context, so logger.InfoContext(ctx, ...) carries them
// without the caller passing them along.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps inner.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := EditID(ctx); v != "" {
		r.AddAttrs(slog.String("edit_id", v))
	}
	if v := Operation(ctx); v != "" {
		r.AddAttrs(slog.String("op", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
