package services

import "context"

type contextKey string

const (
	queueKey     contextKey = "queue"
	entryIDKey   contextKey = "entry_id"
	requestIDKey contextKey = "request_id"
)

// WithQueue annotates context with the queue name.
func WithQueue(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, queueKey, name)
}

// QueueFromContext returns the queue name if present.
func QueueFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(queueKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEntryID annotates context with the queue entry identifier.
func WithEntryID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, entryIDKey, id)
}

// EntryIDFromContext extracts the queue entry identifier if present.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(entryIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
