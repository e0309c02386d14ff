package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"one-rpc/message"
	"one-rpc/metrics"
	"one-rpc/protocol"
)

// Logging logs one line per call. Params are never logged: the first one is
// always a credential.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			start := time.Now()
			payload, err := next(ctx, call)

			fields := []zap.Field{
				zap.String("method", call.MethodName),
				zap.Int("params", len(call.Params)),
				zap.Duration("duration", time.Since(start)),
				zap.String("outcome", metrics.Outcome(err)),
			}
			if id := RequestIDFromContext(ctx); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			switch {
			case err == nil:
				logger.Debug("rpc call", append(fields, zap.Stringer("payload_kind", payload.Kind()))...)
			case protocol.IsProtocol(err):
				// The remote said no; this is an expected answer.
				logger.Info("rpc call rejected", append(fields, zap.Error(err))...)
			default:
				logger.Warn("rpc call failed", append(fields, zap.Error(err))...)
			}
			return payload, err
		}
	}
}
