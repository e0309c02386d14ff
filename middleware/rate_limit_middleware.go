package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"one-rpc/message"
	"one-rpc/protocol"
)

// RateLimit throttles calls with a token bucket. Calls wait for a token; a
// call whose context ends first fails with a TransportError and never reaches
// the wire.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			if err := limiter.Wait(ctx); err != nil {
				return protocol.Payload{}, &protocol.TransportError{
					Method: call.MethodName,
					Err:    fmt.Errorf("rate limit: %w", err),
				}
			}
			return next(ctx, call)
		}
	}
}
