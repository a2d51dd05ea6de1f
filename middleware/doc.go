// Package middleware provides composable middleware for consumer message
// handlers.
//
// A [Middleware] is a function that wraps a handler. Middleware are
// composed into a chain using [Chain] and applied around every handler
// invocation. They are applied right-to-left: the first middleware in
// the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs topic, message id, duration and outcome
//   - [Recover] — catches panics and converts them to errors
//   - [Tracing] — wraps handling in an OpenTelemetry span
//   - [Metrics] — records per-topic duration and outcome counters
//
// There is deliberately no timeout middleware: a hung handler stalls its
// loop until it returns.
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, env *message.Envelope, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
package middleware
