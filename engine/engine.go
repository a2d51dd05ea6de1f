package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/backoff"
	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/consumer"
	"github.com/xraph/conveyor/dlq"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/featureflag"
	"github.com/xraph/conveyor/jobqueue"
	"github.com/xraph/conveyor/message"
	mw "github.com/xraph/conveyor/middleware"
	"github.com/xraph/conveyor/observability"
	"github.com/xraph/conveyor/producer"
	"github.com/xraph/conveyor/throttle"
)

// instrumentationName is the OTel scope for engine-built instruments.
const instrumentationName = "github.com/xraph/conveyor"

// Engine owns the conveyor components and gates them behind a flag.
type Engine struct {
	cfg        conveyor.Config
	flags      featureflag.Flags
	extensions *ext.Registry
	logger     *slog.Logger

	producer *producer.Producer
	consumer *consumer.Consumer
	dlq      *dlq.Handler
	jobs     *jobqueue.Queue

	exts           []ext.Extension
	mws            []mw.Middleware
	throttles      []throttle.Config
	codec          message.Codec
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware adds consumer handler middleware. Middleware runs in the
// order given, inside tracing, metrics and logging.
func WithMiddleware(m ...mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m...) }
}

// WithThrottle registers per-topic rate limits and concurrency caps
// shared by the producer and consumer.
func WithThrottle(configs ...throttle.Config) Option {
	return func(eng *Engine) { eng.throttles = append(eng.throttles, configs...) }
}

// WithCodec sets the envelope codec for the producer and consumer.
func WithCodec(c message.Codec) Option {
	return func(eng *Engine) { eng.codec = c }
}

// WithTracerProvider sets a custom OTel TracerProvider. If not set, the
// global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the metrics
// middleware and the observability extension. If not set, the global
// provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// New builds an Engine. A nil broker yields components that report
// conveyor.ErrNotConfigured; nil flags enable everything.
func New(cfg conveyor.Config, b broker.Broker, flags featureflag.Flags, opts ...Option) *Engine {
	if flags == nil {
		flags = featureflag.Always(true)
	}
	eng := &Engine{
		cfg:    cfg,
		flags:  flags,
		logger: slog.Default(),
		codec:  message.JSONCodec{},
	}
	for _, opt := range opts {
		opt(eng)
	}

	tp := eng.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := eng.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tracer := tp.Tracer(instrumentationName)

	eng.extensions = ext.NewRegistry(eng.logger)
	eng.extensions.Register(observability.NewMetricsExtensionWithMeter(mp.Meter(instrumentationName + "/observability")))
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	var tm *throttle.Manager
	if len(eng.throttles) > 0 {
		tm = throttle.NewManager(eng.throttles...)
	}

	pOpts := []producer.Option{
		producer.WithCodec(eng.codec),
		producer.WithTracer(tracer),
		producer.WithExtensions(eng.extensions),
		producer.WithLogger(eng.logger),
	}
	if cfg.MaxRetries > 0 {
		pOpts = append(pOpts, producer.WithMaxRetries(cfg.MaxRetries))
	}
	if len(cfg.RetryDelays) > 0 {
		pOpts = append(pOpts, producer.WithRetryDelays(cfg.RetryDelays...))
	} else {
		pOpts = append(pOpts, producer.WithBackoff(backoff.DefaultStrategy()))
	}
	if tm != nil {
		pOpts = append(pOpts, producer.WithThrottle(tm))
	}
	eng.producer = producer.New(b, pOpts...)

	// Tracing and metrics wrap logging; user middleware runs innermost.
	mws := []mw.Middleware{
		mw.TracingWithTracer(tracer),
		mw.MetricsWithMeter(mp.Meter(instrumentationName)),
		mw.Logging(eng.logger),
	}
	mws = append(mws, eng.mws...)

	cOpts := []consumer.Option{
		consumer.WithCodec(eng.codec),
		consumer.WithMiddleware(mws...),
		consumer.WithExtensions(eng.extensions),
		consumer.WithLogger(eng.logger),
	}
	if cfg.Group != "" {
		cOpts = append(cOpts, consumer.WithGroup(cfg.Group, cfg.Instance))
	}
	if cfg.OffsetReset != "" {
		cOpts = append(cOpts, consumer.WithOffsetReset(cfg.OffsetReset))
	}
	if cfg.BatchSize > 0 {
		cOpts = append(cOpts, consumer.WithBatchSize(cfg.BatchSize))
	}
	if cfg.MaxRetries > 0 {
		cOpts = append(cOpts, consumer.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.Concurrency > 0 {
		cOpts = append(cOpts, consumer.WithConcurrency(cfg.Concurrency))
	}
	if cfg.PollInterval > 0 {
		cOpts = append(cOpts, consumer.WithPollInterval(cfg.PollInterval))
	}
	if tm != nil {
		cOpts = append(cOpts, consumer.WithThrottle(tm))
	}
	eng.consumer = consumer.New(b, eng.producer, cOpts...)

	eng.dlq = dlq.New(eng.consumer, eng.producer, dlq.WithLogger(eng.logger))

	jOpts := []jobqueue.Option{
		jobqueue.WithExtensions(eng.extensions),
		jobqueue.WithLogger(eng.logger),
	}
	if cfg.Group != "" {
		jOpts = append(jOpts, jobqueue.WithGroup(cfg.Group+"-jobs", cfg.Instance))
	}
	eng.jobs = jobqueue.New(eng.producer, eng.consumer, jOpts...)

	return eng
}

// Start starts the job queue. It fails with conveyor.ErrNotConfigured
// when the engine has no broker.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.jobs.Start(ctx)
}

// Stop stops job workers and maintenance.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.jobs.Stop(ctx)
}

// Enabled reports whether the feature flag is on for userID.
func (eng *Engine) Enabled(userID string) bool {
	return eng.flags.IsEnabled(eng.cfg.FeatureFlag, userID)
}

// Producer returns the producer, or a no-op when the flag is off.
func (eng *Engine) Producer(userID string) producer.Publisher {
	if !eng.Enabled(userID) {
		return producer.Noop{}
	}
	return eng.producer
}

// Consumer returns the consumer, or a no-op when the flag is off.
func (eng *Engine) Consumer(userID string) consumer.Processor {
	if !eng.Enabled(userID) {
		return consumer.Noop{}
	}
	return eng.consumer
}

// DLQ returns the DLQ handler, or a no-op when the flag is off.
func (eng *Engine) DLQ(userID string) dlq.Inspector {
	if !eng.Enabled(userID) {
		return dlq.Noop{}
	}
	return eng.dlq
}

// Jobs returns the job queue, or a no-op when the flag is off.
func (eng *Engine) Jobs(userID string) jobqueue.Jobs {
	if !eng.Enabled(userID) {
		return jobqueue.Noop{}
	}
	return eng.jobs
}

// Config returns the engine configuration.
func (eng *Engine) Config() conveyor.Config { return eng.cfg }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Logger returns the engine logger.
func (eng *Engine) Logger() *slog.Logger { return eng.logger }
