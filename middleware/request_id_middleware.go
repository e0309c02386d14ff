package middleware

import (
	"context"

	"github.com/google/uuid"

	"one-rpc/message"
	"one-rpc/protocol"
)

type requestIDKey struct{}

// ContextWithRequestID attaches id to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id attached to ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID gives every call an id unless the caller already set one.
func RequestID() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, uuid.NewString())
			}
			return next(ctx, call)
		}
	}
}
