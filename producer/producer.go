package producer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/backoff"
	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/throttle"
)

// tracerName is the instrumentation scope name for producer spans.
const tracerName = "github.com/xraph/conveyor/producer"

// DefaultMaxRetries is the default attempt budget per publish.
const DefaultMaxRetries = 5

// Publisher is the publishing surface shared by the real producer and
// its no-op stand-in.
type Publisher interface {
	Produce(ctx context.Context, topic message.Topic, data any, opts ...ProduceOption) Result
	ProduceOnce(ctx context.Context, topic message.Topic, data any, opts ...ProduceOption) Result
	ProduceBatch(ctx context.Context, reqs []Request) []Result
	Publish(ctx context.Context, env *message.Envelope) Result
	PublishOnce(ctx context.Context, env *message.Envelope) Result
}

var (
	_ Publisher = (*Producer)(nil)
	_ Publisher = Noop{}
)

// Result reports the outcome of one publish.
type Result struct {
	Success   bool          `json:"success"`
	Topic     message.Topic `json:"topic"`
	ID        string        `json:"id,omitempty"`
	Partition int           `json:"partition"`
	Offset    int64         `json:"offset"`
	Attempts  int           `json:"attempts"`
	Err       error         `json:"-"`
}

// Request is one entry of a ProduceBatch call.
type Request struct {
	Topic          message.Topic
	Data           any
	IdempotencyKey string
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Producer publishes envelopes with retry. It is safe for concurrent use.
type Producer struct {
	broker     broker.Broker
	codec      message.Codec
	strategy   backoff.Strategy
	maxRetries int
	throttle   *throttle.Manager
	extensions *ext.Registry
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
	sleep      SleepFunc
}

// New creates a producer on b. A nil broker yields a producer whose
// every call fails with conveyor.ErrNotConfigured.
func New(b broker.Broker, opts ...Option) *Producer {
	p := &Producer{
		broker:     b,
		codec:      message.JSONCodec{},
		strategy:   backoff.DefaultStrategy(),
		maxRetries: DefaultMaxRetries,
		tracer:     otel.Tracer(tracerName),
		logger:     slog.Default(),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.extensions == nil {
		p.extensions = ext.NewRegistry(p.logger)
	}
	return p
}

// Configured reports whether the producer has a broker.
func (p *Producer) Configured() bool { return p.broker != nil }

// Produce wraps data in a new envelope and publishes it with retry.
func (p *Producer) Produce(ctx context.Context, topic message.Topic, data any, opts ...ProduceOption) Result {
	return p.produce(ctx, topic, data, applyProduceOptions(opts), p.maxRetries)
}

// ProduceOnce is Produce with exactly one attempt.
func (p *Producer) ProduceOnce(ctx context.Context, topic message.Topic, data any, opts ...ProduceOption) Result {
	return p.produce(ctx, topic, data, applyProduceOptions(opts), 1)
}

// ProduceBatch produces every request concurrently and returns one result
// per request in input order. A failing request never cancels the others.
func (p *Producer) ProduceBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	// Plain errgroup, no derived context: siblings must not cancel each other.
	var g errgroup.Group
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = p.Produce(ctx, req.Topic, req.Data, WithIdempotencyKey(req.IdempotencyKey))
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines report through results

	return results
}

// Publish sends an existing envelope with retry, keeping its ID.
func (p *Producer) Publish(ctx context.Context, env *message.Envelope) Result {
	return p.publish(ctx, env, p.maxRetries)
}

// PublishOnce sends an existing envelope in a single attempt.
func (p *Producer) PublishOnce(ctx context.Context, env *message.Envelope) Result {
	return p.publish(ctx, env, 1)
}

func (p *Producer) produce(ctx context.Context, topic message.Topic, data any, o produceOptions, attempts int) Result {
	if !topic.Valid() {
		return Result{Topic: topic, Err: fmt.Errorf("%w: %q", conveyor.ErrUnknownTopic, topic)}
	}

	env, err := message.New(topic, data, p.now())
	if err != nil {
		return Result{Topic: topic, Err: fmt.Errorf("conveyor/producer: %w", err)}
	}
	env.IdempotencyKey = o.idempotencyKey

	return p.publish(ctx, env, attempts)
}

func (p *Producer) publish(ctx context.Context, env *message.Envelope, attempts int) Result {
	res := Result{Topic: env.Topic, ID: env.ID}

	if p.broker == nil {
		res.Err = conveyor.ErrNotConfigured
		return res
	}
	if attempts < 1 {
		attempts = 1
	}

	payload, err := p.codec.Encode(env)
	if err != nil {
		res.Err = fmt.Errorf("conveyor/producer: encode %s: %w", env.ID, err)
		return res
	}

	ctx, span := p.tracer.Start(ctx, "conveyor.produce",
		trace.WithAttributes(
			attribute.String("conveyor.message.id", env.ID),
			attribute.String("conveyor.topic", env.Topic.String()),
			attribute.Int("conveyor.retry_count", env.RetryCount),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	var lastErr error
	exhausted := false
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt

		if p.throttle != nil {
			if err := p.throttle.Wait(ctx, env.Topic.String()); err != nil {
				lastErr = err
				break
			}
		}

		off, err := p.broker.Produce(ctx, env.Topic.String(), payload)
		if err == nil {
			res.Success = true
			res.Partition = off.Partition
			res.Offset = off.Offset
			span.SetAttributes(attribute.Int("conveyor.attempts", attempt))
			span.SetStatus(codes.Ok, "")
			p.extensions.EmitMessageProduced(ctx, env, off)
			return res
		}
		lastErr = err

		if attempt == attempts {
			exhausted = true
			break
		}

		delay := p.strategy.Delay(attempt)
		p.logger.Warn("produce attempt failed, retrying",
			slog.String("topic", env.Topic.String()),
			slog.String("message_id", env.ID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := p.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if exhausted {
		res.Err = fmt.Errorf("conveyor/producer: publish %s to %s after %d attempt(s): %w: %w",
			env.ID, env.Topic, res.Attempts, conveyor.ErrMaxRetriesExceeded, lastErr)
	} else {
		res.Err = fmt.Errorf("conveyor/producer: publish %s to %s after %d attempt(s): %w",
			env.ID, env.Topic, res.Attempts, lastErr)
	}
	span.RecordError(res.Err)
	span.SetStatus(codes.Error, res.Err.Error())

	p.logger.Error("produce failed",
		slog.String("topic", env.Topic.String()),
		slog.String("message_id", env.ID),
		slog.Int("attempts", res.Attempts),
		slog.String("error", lastErr.Error()),
	)
	p.extensions.EmitProduceFailed(ctx, env, res.Attempts, lastErr)
	return res
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
