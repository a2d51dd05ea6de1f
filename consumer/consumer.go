package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/middleware"
	"github.com/xraph/conveyor/producer"
	"github.com/xraph/conveyor/throttle"
)

// Defaults for a Consumer built without options.
const (
	DefaultBatchSize    = 10
	DefaultMaxRetries   = 5
	DefaultConcurrency  = 5
	DefaultPollInterval = time.Second
)

// HandlerFunc processes one envelope. A non-nil error triggers retry or
// dead-lettering.
type HandlerFunc func(ctx context.Context, env *message.Envelope) error

// Processor is the consuming surface shared by the real consumer and its
// no-op stand-in.
type Processor interface {
	Consume(ctx context.Context, topic message.Topic, opts ...CallOption) ([]*message.Envelope, error)
	ProcessBatch(ctx context.Context, topic message.Topic, h HandlerFunc, opts ...CallOption) BatchResult
	ProcessParallelBatch(ctx context.Context, topic message.Topic, h HandlerFunc, opts ...CallOption) BatchResult
	StartPolling(ctx context.Context, topic message.Topic, h HandlerFunc, opts ...CallOption) *Poller
}

var (
	_ Processor = (*Consumer)(nil)
	_ Processor = Noop{}
)

// MessageError records one handler failure, or a fetch failure when
// MessageID is empty.
type MessageError struct {
	MessageID  string
	RetryCount int
	Err        error
}

func (e MessageError) Error() string {
	if e.MessageID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("message %s (retry %d): %v", e.MessageID, e.RetryCount, e.Err)
}

func (e MessageError) Unwrap() error { return e.Err }

// BatchResult summarises one batch.
type BatchResult struct {
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	DLQSent   int            `json:"dlqSent"`
	Errors    []MessageError `json:"-"`
}

// Consumer fetches and processes envelopes. It is safe for concurrent
// use; each call is independent.
type Consumer struct {
	broker       broker.Broker
	publisher    producer.Publisher
	codec        message.Codec
	group        string
	instance     string
	offsetReset  string
	batchSize    int
	maxRetries   int
	concurrency  int
	pollInterval time.Duration
	middleware   []middleware.Middleware
	chain        middleware.Middleware
	throttle     *throttle.Manager
	extensions   *ext.Registry
	logger       *slog.Logger
	now          func() time.Time
	sleep        producer.SleepFunc
}

// New creates a consumer reading from b and republishing through pub.
// A nil broker yields a consumer whose calls fail with
// conveyor.ErrNotConfigured.
func New(b broker.Broker, pub producer.Publisher, opts ...Option) *Consumer {
	c := &Consumer{
		broker:       b,
		publisher:    pub,
		codec:        message.JSONCodec{},
		group:        "conveyor",
		instance:     "instance-1",
		offsetReset:  broker.OffsetEarliest,
		batchSize:    DefaultBatchSize,
		maxRetries:   DefaultMaxRetries,
		concurrency:  DefaultConcurrency,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
		now:          time.Now,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.publisher == nil {
		c.publisher = producer.New(b, producer.WithLogger(c.logger))
	}
	if c.extensions == nil {
		c.extensions = ext.NewRegistry(c.logger)
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	// Recover always wraps the handler so panics follow the retry path.
	c.chain = middleware.Chain(append(c.middleware, middleware.Recover(c.logger))...)
	return c
}

// Consume fetches up to the batch size of envelopes from topic.
// Malformed records are logged and dropped.
func (c *Consumer) Consume(ctx context.Context, topic message.Topic, opts ...CallOption) ([]*message.Envelope, error) {
	if c.broker == nil {
		return nil, conveyor.ErrNotConfigured
	}
	o := c.callOptions(opts)

	recs, err := c.broker.Consume(ctx, broker.ConsumeRequest{
		Group:       o.group,
		Instance:    o.instance,
		Topics:      []string{topic.String()},
		OffsetReset: o.offsetReset,
		Limit:       o.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("conveyor/consumer: consume %s: %w", topic, err)
	}

	envs := make([]*message.Envelope, 0, len(recs))
	for _, rec := range recs {
		env, err := c.codec.Decode([]byte(rec.Value))
		if err != nil {
			c.logger.Warn("skipping malformed message",
				slog.String("topic", rec.Topic),
				slog.Int64("offset", rec.Offset),
				slog.String("error", err.Error()),
			)
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// ProcessBatch fetches one batch and handles it sequentially.
func (c *Consumer) ProcessBatch(ctx context.Context, topic message.Topic, h HandlerFunc, opts ...CallOption) BatchResult {
	return c.process(ctx, topic, h, c.callOptions(opts), false)
}

// ProcessParallelBatch fetches one batch and handles it in windows of
// the configured concurrency.
func (c *Consumer) ProcessParallelBatch(ctx context.Context, topic message.Topic, h HandlerFunc, opts ...CallOption) BatchResult {
	return c.process(ctx, topic, h, c.callOptions(opts), true)
}

func (c *Consumer) process(ctx context.Context, topic message.Topic, h HandlerFunc, o callOptions, parallel bool) BatchResult {
	var res BatchResult

	if c.throttle != nil {
		if !c.throttle.Acquire(topic.String()) {
			return res
		}
		defer c.throttle.Release(topic.String())
	}

	envs, err := c.Consume(ctx, topic, func(co *callOptions) { *co = o })
	if err != nil {
		c.logger.Error("fetch failed",
			slog.String("topic", topic.String()),
			slog.String("error", err.Error()),
		)
		res.Errors = append(res.Errors, MessageError{Err: err})
		return res
	}

	if !parallel {
		for _, env := range envs {
			c.settle(ctx, topic, env, c.handle(ctx, env, h), &res)
		}
		return res
	}

	for start := 0; start < len(envs); start += o.concurrency {
		window := envs[start:min(start+o.concurrency, len(envs))]
		errs := make([]error, len(window))

		// No shared cancellation: a failing unit never stops its siblings.
		var g errgroup.Group
		for i, env := range window {
			g.Go(func() error {
				errs[i] = c.handle(ctx, env, h)
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // units report through errs

		for i, env := range window {
			c.settle(ctx, topic, env, errs[i], &res)
		}
	}
	return res
}

// handle runs h through the middleware chain.
func (c *Consumer) handle(ctx context.Context, env *message.Envelope, h HandlerFunc) error {
	start := time.Now()
	err := c.chain(ctx, env, func(ctx context.Context) error {
		return h(ctx, env)
	})
	if err == nil {
		c.extensions.EmitMessageProcessed(ctx, env, time.Since(start))
	}
	return err
}

// settle records the outcome of one envelope, requeueing or
// dead-lettering it on failure.
func (c *Consumer) settle(ctx context.Context, topic message.Topic, env *message.Envelope, err error, res *BatchResult) {
	if err == nil {
		res.Processed++
		return
	}

	res.Failed++
	retry := env.RetryCount + 1
	res.Errors = append(res.Errors, MessageError{MessageID: env.ID, RetryCount: retry, Err: err})

	if retry >= c.maxRetries {
		if c.deadLetter(ctx, topic, env, retry, err) {
			res.DLQSent++
		}
		return
	}
	c.requeue(ctx, env, retry, err)
}

func (c *Consumer) requeue(ctx context.Context, env *message.Envelope, retry int, cause error) {
	next := env.Requeue(retry, c.now())
	if pub := c.publisher.PublishOnce(ctx, next); !pub.Success {
		c.logger.Error("failed to requeue message",
			slog.String("topic", env.Topic.String()),
			slog.String("message_id", env.ID),
			slog.Int("retry_count", retry),
			slog.String("error", pub.Err.Error()),
		)
		return
	}
	c.extensions.EmitMessageRetrying(ctx, next, retry, cause)
}

func (c *Consumer) deadLetter(ctx context.Context, topic message.Topic, env *message.Envelope, retry int, cause error) bool {
	now := c.now()
	final := env.Clone()
	final.RetryCount = retry

	dl := message.NewDeadLetter(final, cause.Error(), now)
	dl.OriginalTopic = topic

	outer, err := dl.Wrap(now)
	if err != nil {
		c.logger.Error("cannot dead-letter message",
			slog.String("topic", topic.String()),
			slog.String("message_id", env.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	if pub := c.publisher.Publish(ctx, outer); !pub.Success {
		c.logger.Error("failed to publish dead letter",
			slog.String("topic", topic.String()),
			slog.String("message_id", env.ID),
			slog.String("error", pub.Err.Error()),
		)
		return false
	}

	c.logger.Warn("message moved to DLQ after exhausting retries",
		slog.String("topic", topic.String()),
		slog.String("dlq_topic", outer.Topic.String()),
		slog.String("message_id", env.ID),
		slog.Int("retry_count", retry),
		slog.String("error", cause.Error()),
	)
	c.extensions.EmitMessageDeadLettered(ctx, dl)
	return true
}

// StartPolling runs fetch-and-process cycles on topic in a new goroutine
// until the returned Poller is stopped or ctx is done. A cycle that
// handled nothing sleeps for the poll interval.
func (c *Consumer) StartPolling(ctx context.Context, topic message.Topic, h HandlerFunc, opts ...CallOption) *Poller {
	o := c.callOptions(opts)
	p := newPoller(ctx)

	c.logger.Info("polling started",
		slog.String("topic", topic.String()),
		slog.String("group", o.group),
		slog.Duration("interval", o.pollInterval),
		slog.Bool("parallel", o.parallel),
	)

	go func() {
		defer close(p.done)
		defer p.cancelSleep()
		defer c.logger.Info("polling stopped", slog.String("topic", topic.String()))

		for {
			if p.stopped.Load() || ctx.Err() != nil {
				return
			}

			res := c.process(ctx, topic, h, o, o.parallel)
			p.record(res)

			if res.Processed+res.Failed == 0 {
				_ = c.sleep(p.sleepCtx, o.pollInterval) //nolint:errcheck // loop re-checks stop flag
			}
		}
	}()

	return p
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
