package services

import "context"

type contextKey string

const (
	itemIDKey     contextKey = "item_id"
	invocationKey contextKey = "invocation"
)

// WithItemID annotates context with the conversion item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the item identifier if present.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(itemIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithInvocation annotates context with the engine invocation identifier.
func WithInvocation(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, invocationKey, id)
}

// InvocationFromContext returns the engine invocation identifier if present.
func InvocationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(invocationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
