package producer

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conveyor/backoff"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/throttle"
)

// Option configures a Producer.
type Option func(*Producer)

// WithMaxRetries sets the attempt budget per publish. Values below one
// mean a single attempt.
func WithMaxRetries(n int) Option {
	return func(p *Producer) { p.maxRetries = n }
}

// WithRetryDelays sets a capped delay table: the wait after failed
// attempt i is delays[min(i, len-1)].
func WithRetryDelays(delays ...time.Duration) Option {
	return func(p *Producer) { p.strategy = backoff.NewTable(delays...) }
}

// WithBackoff sets an arbitrary retry delay strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(p *Producer) { p.strategy = s }
}

// WithCodec sets the envelope codec. Defaults to JSON.
func WithCodec(c message.Codec) Option {
	return func(p *Producer) { p.codec = c }
}

// WithThrottle sets a per-topic rate limiter consulted before every
// attempt.
func WithThrottle(m *throttle.Manager) Option {
	return func(p *Producer) { p.throttle = m }
}

// WithRateLimit limits publishes on every topic to limit per second.
func WithRateLimit(limit float64, burst int) Option {
	return WithThrottle(throttle.NewManager(throttle.Config{
		Topic:     throttle.AnyTopic,
		RateLimit: limit,
		RateBurst: burst,
	}))
}

// WithExtensions sets the lifecycle hook registry.
func WithExtensions(r *ext.Registry) Option {
	return func(p *Producer) { p.extensions = r }
}

// WithTracer sets the tracer used for publish spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Producer) { p.tracer = t }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Producer) { p.logger = l }
}

// WithClock overrides the time source used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Producer) { p.now = now }
}

// WithSleep overrides how the producer waits between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(p *Producer) { p.sleep = fn }
}

// ProduceOption configures a single Produce call.
type ProduceOption func(*produceOptions)

type produceOptions struct {
	idempotencyKey string
}

func applyProduceOptions(opts []ProduceOption) produceOptions {
	var o produceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithIdempotencyKey stamps the envelope with a caller-supplied key for
// downstream deduplication. The queue does not enforce it.
func WithIdempotencyKey(key string) ProduceOption {
	return func(o *produceOptions) { o.idempotencyKey = key }
}
