package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conveyor/message"
)

// tracerName is the instrumentation scope name for consumer tracing.
const tracerName = "github.com/xraph/conveyor"

// Tracing returns middleware that wraps handler execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through.
//
// Span attributes include: conveyor.message.id, conveyor.topic,
// conveyor.retry_count and conveyor.idempotency_key.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer returns tracing middleware using the provided tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, env *message.Envelope, next Handler) error {
		ctx, span := tracer.Start(ctx, "conveyor.message.handle",
			trace.WithAttributes(
				attribute.String("conveyor.message.id", env.ID),
				attribute.String("conveyor.topic", env.Topic.String()),
				attribute.Int("conveyor.retry_count", env.RetryCount),
				attribute.String("conveyor.idempotency_key", env.IdempotencyKey),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
