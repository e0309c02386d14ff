package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"one-rpc/message"
	"one-rpc/protocol"
)

// Retry re-sends calls that failed with a TransportError, backing off
// exponentially from baseDelay. Protocol and malformed-response errors are
// returned at once. Not installed unless configured: control-plane calls such
// as one.template.instantiate are not idempotent.
func Retry(maxRetries int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			payload, err := next(ctx, call)
			for i := 0; i < maxRetries; i++ {
				if err == nil || !protocol.IsTransport(err) {
					return payload, err
				}
				delay := baseDelay * time.Duration(1<<i)
				logger.Warn("retrying rpc call",
					zap.String("method", call.MethodName),
					zap.Int("attempt", i+1),
					zap.Duration("delay", delay),
					zap.Error(err))

				t := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					t.Stop()
					return payload, err
				case <-t.C:
				}
				payload, err = next(ctx, call)
			}
			return payload, err
		}
	}
}
