package consumer

import (
	"log/slog"
	"time"

	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/middleware"
	"github.com/xraph/conveyor/producer"
	"github.com/xraph/conveyor/throttle"
)

// Option configures a Consumer.
type Option func(*Consumer)

// WithGroup sets the consumer group and instance name.
func WithGroup(group, instance string) Option {
	return func(c *Consumer) {
		c.group = group
		c.instance = instance
	}
}

// WithOffsetReset sets where a new group starts reading ("earliest" or
// "latest").
func WithOffsetReset(reset string) Option {
	return func(c *Consumer) { c.offsetReset = reset }
}

// WithBatchSize sets the maximum envelopes per fetch.
func WithBatchSize(n int) Option {
	return func(c *Consumer) { c.batchSize = n }
}

// WithMaxRetries sets the retry ceiling before dead-lettering.
func WithMaxRetries(n int) Option {
	return func(c *Consumer) { c.maxRetries = n }
}

// WithConcurrency sets the window size for parallel batches.
func WithConcurrency(n int) Option {
	return func(c *Consumer) { c.concurrency = n }
}

// WithPollInterval sets how long an idle polling loop sleeps.
func WithPollInterval(d time.Duration) Option {
	return func(c *Consumer) { c.pollInterval = d }
}

// WithCodec sets the envelope codec. Defaults to JSON.
func WithCodec(codec message.Codec) Option {
	return func(c *Consumer) { c.codec = codec }
}

// WithMiddleware appends handler middleware. Recover is always applied
// innermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Consumer) { c.middleware = append(c.middleware, mws...) }
}

// WithThrottle caps concurrent batch cycles per topic.
func WithThrottle(m *throttle.Manager) Option {
	return func(c *Consumer) { c.throttle = m }
}

// WithExtensions sets the lifecycle hook registry.
func WithExtensions(r *ext.Registry) Option {
	return func(c *Consumer) { c.extensions = r }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Consumer) { c.logger = l }
}

// WithClock overrides the time source used for requeue timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Consumer) { c.now = now }
}

// WithSleep overrides how idle polling loops wait.
func WithSleep(fn producer.SleepFunc) Option {
	return func(c *Consumer) { c.sleep = fn }
}

// CallOption adjusts a single Consume, ProcessBatch or StartPolling call.
type CallOption func(*callOptions)

type callOptions struct {
	group        string
	instance     string
	offsetReset  string
	limit        int
	concurrency  int
	pollInterval time.Duration
	parallel     bool
}

func (c *Consumer) callOptions(opts []CallOption) callOptions {
	o := callOptions{
		group:        c.group,
		instance:     c.instance,
		offsetReset:  c.offsetReset,
		limit:        c.batchSize,
		concurrency:  c.concurrency,
		pollInterval: c.pollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// Limit overrides the batch size for one call.
func Limit(n int) CallOption {
	return func(o *callOptions) { o.limit = n }
}

// Group reads with a different consumer group for one call.
func Group(group, instance string) CallOption {
	return func(o *callOptions) {
		o.group = group
		o.instance = instance
	}
}

// FromEarliest starts a new group at the oldest record.
func FromEarliest() CallOption {
	return func(o *callOptions) { o.offsetReset = broker.OffsetEarliest }
}

// Concurrency overrides the parallel window size for one call.
func Concurrency(n int) CallOption {
	return func(o *callOptions) { o.concurrency = n }
}

// Interval overrides the idle sleep of a polling loop.
func Interval(d time.Duration) CallOption {
	return func(o *callOptions) { o.pollInterval = d }
}

// Parallel makes a polling loop use ProcessParallelBatch.
func Parallel() CallOption {
	return func(o *callOptions) { o.parallel = true }
}
