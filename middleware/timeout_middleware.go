package middleware

import (
	"context"
	"time"

	"one-rpc/message"
	"one-rpc/protocol"
)

type result struct {
	payload protocol.Payload
	err     error
}

// Timeout bounds a call. The inner handler gets the derived context; if it
// does not return in time the caller receives a TransportError.
func Timeout(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan result, 1)
			go func() {
				p, err := next(ctx, call)
				done <- result{payload: p, err: err}
			}()

			select {
			case r := <-done:
				return r.payload, r.err
			case <-ctx.Done():
				return protocol.Payload{}, &protocol.TransportError{Method: call.MethodName, Err: ctx.Err()}
			}
		}
	}
}
