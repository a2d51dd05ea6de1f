package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/conveyor/message"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace, so a
// panicking handler follows the normal retry and dead-letter path.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, env *message.Envelope, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("message handler panicked",
					slog.String("topic", env.Topic.String()),
					slog.String("message_id", env.ID),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic handling message %s: %v", env.ID, r)
			}
		}()
		return next(ctx)
	}
}
