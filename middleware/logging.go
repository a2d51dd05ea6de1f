package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conveyor/message"
)

// Logging returns middleware that logs handler start and outcome.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, env *message.Envelope, next Handler) error {
		logger.Debug("message received",
			slog.String("topic", env.Topic.String()),
			slog.String("message_id", env.ID),
			slog.Int("retry_count", env.RetryCount),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("message handler failed",
				slog.String("topic", env.Topic.String()),
				slog.String("message_id", env.ID),
				slog.Int("retry_count", env.RetryCount),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("message handled",
				slog.String("topic", env.Topic.String()),
				slog.String("message_id", env.ID),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
