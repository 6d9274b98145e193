package logging

import (
	"context"
	"log/slog"

	"filewell/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for conversion item identifiers.
	FieldItemID = "item_id"
	// FieldInvocation identifies a single engine invocation (its working names derive from it).
	FieldInvocation = "invocation"
	FieldCategory   = "category"
	FieldTarget     = "target_format"
	// FieldEngineState carries the encoder resource lifecycle state.
	FieldEngineState = "engine_state"
	FieldEventType   = "event_type"
	FieldErrorHint   = "error_hint"
	FieldImpact      = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	if inv, ok := services.InvocationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldInvocation, inv))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
