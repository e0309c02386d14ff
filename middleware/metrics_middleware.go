package middleware

import (
	"context"
	"time"

	"one-rpc/message"
	"one-rpc/metrics"
	"one-rpc/protocol"
)

// Metrics records call counts, outcomes and latency.
func Metrics(c *metrics.Collector) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			done := c.Start(call.MethodName)
			start := time.Now()
			payload, err := next(ctx, call)
			done(time.Since(start), err)
			return payload, err
		}
	}
}
