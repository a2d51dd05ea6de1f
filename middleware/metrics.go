package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/conveyor/message"
)

// meterName is the instrumentation scope name for consumer metrics.
const meterName = "github.com/xraph/conveyor"

// Metrics returns middleware that records per-message handler metrics
// using the global OTel MeterProvider. If no MeterProvider is configured,
// noop instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - conveyor.message.duration (Float64Histogram): handler time in
//     seconds, with attributes: topic, status ("ok" or "error")
//   - conveyor.message.handled (Int64Counter): handler invocations,
//     with attributes: topic, status ("ok" or "error")
func Metrics() Middleware {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the OTel API returns noop instruments.
	duration, _ := meter.Float64Histogram( //nolint:errcheck // noop fallback
		"conveyor.message.duration",
		metric.WithDescription("Duration of message handling in seconds"),
		metric.WithUnit("s"),
	)
	handled, _ := meter.Int64Counter( //nolint:errcheck // noop fallback
		"conveyor.message.handled",
		metric.WithDescription("Total number of handler invocations"),
		metric.WithUnit("{message}"),
	)

	return func(ctx context.Context, env *message.Envelope, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("topic", env.Topic.String()),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		handled.Add(ctx, 1, attrs)

		return err
	}
}
