package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/xraph/conveyor/observability"

// Compile-time interface checks.
var (
	_ ext.Extension           = (*MetricsExtension)(nil)
	_ ext.MessageProduced     = (*MetricsExtension)(nil)
	_ ext.ProduceFailed       = (*MetricsExtension)(nil)
	_ ext.MessageProcessed    = (*MetricsExtension)(nil)
	_ ext.MessageRetrying     = (*MetricsExtension)(nil)
	_ ext.MessageDeadLettered = (*MetricsExtension)(nil)
	_ ext.JobCreated          = (*MetricsExtension)(nil)
	_ ext.JobActivated        = (*MetricsExtension)(nil)
	_ ext.JobCompleted        = (*MetricsExtension)(nil)
	_ ext.JobRetrying         = (*MetricsExtension)(nil)
	_ ext.JobFailed           = (*MetricsExtension)(nil)
	_ ext.JobCancelled        = (*MetricsExtension)(nil)
)

// MetricsExtension records lifecycle counters. Register it with an
// ext.Registry to track publish rates, retries, dead letters and job
// outcomes. Message counters carry a "topic" attribute; job counters
// carry a "name" attribute.
type MetricsExtension struct {
	MessageProduced     metric.Int64Counter
	ProduceFailed       metric.Int64Counter
	MessageProcessed    metric.Int64Counter
	MessageRetried      metric.Int64Counter
	MessageDeadLettered metric.Int64Counter
	JobCreated          metric.Int64Counter
	JobActivated        metric.Int64Counter
	JobCompleted        metric.Int64Counter
	JobRetried          metric.Int64Counter
	JobFailed           metric.Int64Counter
	JobCancelled        metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on meter.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	return &MetricsExtension{
		MessageProduced:     counter(meter, "conveyor.message.produced", "Envelopes accepted by the broker"),
		ProduceFailed:       counter(meter, "conveyor.message.produce_failed", "Publishes that gave up after all attempts"),
		MessageProcessed:    counter(meter, "conveyor.message.processed", "Envelopes handled successfully"),
		MessageRetried:      counter(meter, "conveyor.message.retried", "Envelopes requeued after a handler error"),
		MessageDeadLettered: counter(meter, "conveyor.message.dead_lettered", "Envelopes sent to the dead-letter topic"),
		JobCreated:          counter(meter, "conveyor.job.created", "Jobs sent"),
		JobActivated:        counter(meter, "conveyor.job.activated", "Jobs activated by fetch"),
		JobCompleted:        counter(meter, "conveyor.job.completed", "Jobs completed"),
		JobRetried:          counter(meter, "conveyor.job.retried", "Jobs scheduled for retry"),
		JobFailed:           counter(meter, "conveyor.job.failed", "Jobs that exhausted their retries"),
		JobCancelled:        counter(meter, "conveyor.job.cancelled", "Jobs cancelled"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	// On error the OTel API returns a noop instrument.
	c, _ := meter.Int64Counter(name, metric.WithDescription(desc)) //nolint:errcheck // noop fallback
	return c
}

func topicAttr(t message.Topic) metric.AddOption {
	return metric.WithAttributes(attribute.String("topic", t.String()))
}

func nameAttr(j *job.Job) metric.AddOption {
	return metric.WithAttributes(attribute.String("name", j.Name))
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ── Message lifecycle hooks ─────────────────────────

// OnMessageProduced implements ext.MessageProduced.
func (m *MetricsExtension) OnMessageProduced(ctx context.Context, env *message.Envelope, _ broker.Offset) error {
	m.MessageProduced.Add(ctx, 1, topicAttr(env.Topic))
	return nil
}

// OnProduceFailed implements ext.ProduceFailed.
func (m *MetricsExtension) OnProduceFailed(ctx context.Context, env *message.Envelope, _ int, _ error) error {
	m.ProduceFailed.Add(ctx, 1, topicAttr(env.Topic))
	return nil
}

// OnMessageProcessed implements ext.MessageProcessed.
func (m *MetricsExtension) OnMessageProcessed(ctx context.Context, env *message.Envelope, _ time.Duration) error {
	m.MessageProcessed.Add(ctx, 1, topicAttr(env.Topic))
	return nil
}

// OnMessageRetrying implements ext.MessageRetrying.
func (m *MetricsExtension) OnMessageRetrying(ctx context.Context, env *message.Envelope, _ int, _ error) error {
	m.MessageRetried.Add(ctx, 1, topicAttr(env.Topic))
	return nil
}

// OnMessageDeadLettered implements ext.MessageDeadLettered.
func (m *MetricsExtension) OnMessageDeadLettered(ctx context.Context, dl *message.DeadLetter) error {
	m.MessageDeadLettered.Add(ctx, 1, topicAttr(dl.OriginalTopic))
	return nil
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (m *MetricsExtension) OnJobCreated(ctx context.Context, j *job.Job) error {
	m.JobCreated.Add(ctx, 1, nameAttr(j))
	return nil
}

// OnJobActivated implements ext.JobActivated.
func (m *MetricsExtension) OnJobActivated(ctx context.Context, j *job.Job) error {
	m.JobActivated.Add(ctx, 1, nameAttr(j))
	return nil
}

// OnJobCompleted implements ext.JobCompleted.
func (m *MetricsExtension) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	m.JobCompleted.Add(ctx, 1, nameAttr(j))
	return nil
}

// OnJobRetrying implements ext.JobRetrying.
func (m *MetricsExtension) OnJobRetrying(ctx context.Context, j *job.Job, _ time.Time) error {
	m.JobRetried.Add(ctx, 1, nameAttr(j))
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(ctx context.Context, j *job.Job, _ string) error {
	m.JobFailed.Add(ctx, 1, nameAttr(j))
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	m.JobCancelled.Add(ctx, 1, nameAttr(j))
	return nil
}
