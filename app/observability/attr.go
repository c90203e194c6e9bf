package observability

import (
	"context"
	"log/slog"
)

type correlationKey struct{}

// WithCorrelationID stores the correlation id of the message or request being handled.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// CorrelationAttr is the correlation id as a log attribute.
func CorrelationAttr(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationID(ctx))
}
