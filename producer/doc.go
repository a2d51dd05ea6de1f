// Package producer publishes envelopes to broker topics with capped
// backoff retries.
//
// [Producer.Produce] wraps caller data in a fresh [message.Envelope] and
// publishes it, retrying up to the configured attempt budget (default 5)
// and sleeping between attempts according to a [backoff.Strategy]
// (default table 1s, 2s, 4s, 8s, repeating the last value).
// [Producer.ProduceOnce] makes a single attempt. [Producer.Publish] and
// [Producer.PublishOnce] send an existing envelope and keep its ID, which
// is how the consumer requeues failures and the DLQ handler replays them.
//
// Failures are reported as data: every call returns a [Result] and never
// panics. A producer built without a broker reports
// conveyor.ErrNotConfigured on every call.
//
//	p := producer.New(b,
//	    producer.WithRetryDelays(time.Second, 2*time.Second),
//	    producer.WithLogger(logger),
//	)
//	res := p.Produce(ctx, message.TopicExecution, payload,
//	    producer.WithIdempotencyKey(requestID))
//	if !res.Success {
//	    return res.Err
//	}
package producer
