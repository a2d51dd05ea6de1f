// Package middleware provides composable middleware for consumer message
// handlers. Middleware wraps handler calls synchronously and can modify
// execution (recover from panics, log, add tracing, etc.).
package middleware

import (
	"context"

	"github.com/xraph/conveyor/message"
)

// Handler is the terminal function that runs the caller's message logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the envelope being handled, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, env *message.Envelope, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, tracing) executes as:
//
//	logging → recover → tracing → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, env *message.Envelope, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, env, prev)
			}
		}
		return h(ctx)
	}
}
