// Package consumer fetches envelopes from broker topics and runs caller
// handlers over them, escalating failures through retry and dead-letter
// publishing.
//
// # Retry and Dead-Lettering
//
// When a handler returns an error the envelope's retry count is bumped
// to n = RetryCount+1. If n reaches the retry ceiling (default 5) a
// [message.DeadLetter] carrying the envelope is published to the topic's
// DLQ; otherwise the same envelope (same ID, new RetryCount and
// timestamp) is republished once to its topic and picked up by a later
// fetch. The consumer enforces no delay between requeue and refetch.
//
// Malformed payloads are logged and skipped. They count neither as
// processed nor as failed.
//
// # Batches and Polling
//
//	c := consumer.New(b, p, consumer.WithBatchSize(20))
//	res := c.ProcessBatch(ctx, message.TopicExecution, handle)
//
//	poller := c.StartPolling(ctx, message.TopicExecution, handle, consumer.Parallel())
//	defer poller.Stop()
//
// [Consumer.ProcessParallelBatch] runs a batch in windows of the
// configured concurrency. Every unit of a window runs to completion
// before retry and DLQ decisions are applied and the next window starts.
//
// A [Poller] checks its stop flag at the top of each cycle. Stop never
// interrupts a running handler; it only prevents the next cycle.
package consumer
