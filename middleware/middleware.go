// Package middleware wraps a call handler with cross-cutting behaviour.
//
// The same HandlerFunc shape is used on both sides of the wire: the client
// wraps "encode → send → decode", the server wraps the registered method
// handler. Chain(A, B, C)(h) runs as A → B → C → h → C → B → A.
package middleware

import (
	"context"

	"one-rpc/message"
	"one-rpc/protocol"
)

type HandlerFunc func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares into one, first one outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
