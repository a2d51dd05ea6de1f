// Package engine wires the conveyor components together behind a
// feature flag.
//
// The engine builds one producer, consumer, DLQ handler and job queue
// from a shared conveyor.Config and broker. Each accessor consults the
// flag at call time and hands back either the working component or its
// no-op stand-in, so callers never branch on the flag themselves and a
// disabled queue never panics.
//
// # Building an Engine
//
//	cfg := conveyor.DefaultConfig()
//	b, err := rest.New(rest.Config{
//	    URL:      cfg.BrokerURL,
//	    Username: cfg.BrokerUsername,
//	    Password: cfg.BrokerPassword,
//	})
//
//	eng := engine.New(cfg, b, featureflag.NewEnv("CONVEYOR_FLAG_"),
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(middleware.Logging(logger)),
//	    engine.WithThrottle(throttle.Config{Topic: "execution-queue", RateLimit: 100}),
//	)
//	if err := eng.Start(ctx); err != nil { ... }
//
// # Using components
//
//	eng.Producer(userID).Produce(ctx, message.TopicExecution, payload)
//	eng.Consumer(userID).StartPolling(ctx, message.TopicExecution, handle)
//	eng.DLQ(userID).Stats(ctx)
//	eng.Jobs(userID).Send(ctx, "execution", payload, job.SendOptions{})
//
// # Options
//
//   - [WithExtension] registers a lifecycle extension
//   - [WithMiddleware] adds consumer handler middleware
//   - [WithThrottle] configures per-topic rate limits and concurrency
//   - [WithCodec] sets the envelope codec
//   - [WithTracerProvider] sets the OpenTelemetry tracer provider
//   - [WithMeterProvider] sets the OpenTelemetry meter provider
//   - [WithLogger] sets the logger
package engine
