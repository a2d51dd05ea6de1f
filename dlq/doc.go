// Package dlq inspects, summarises and replays the dead-letter topic.
//
// Dead letters are published by the consumer once a message exhausts its
// retries: each is a [message.DeadLetter] carried as the data of an
// envelope on the DLQ topic. The broker cannot delete individual records,
// so every read here is a non-destructive snapshot: [Handler] reads the
// whole topic through a fresh, throwaway consumer group starting at the
// earliest offset, and replay republishes without touching the dead
// letter itself. "Delete" therefore means "do not replay".
//
// # Handler
//
//	h := dlq.New(consumer, producer)
//
//	msgs, _ := h.FetchMessages(ctx, dlq.FetchOptions{Limit: 50})
//	stats, _ := h.Stats(ctx)
//	res, _ := h.ReplayByTopic(ctx, message.TopicExecution)
//
// Replay resets the retry count to zero, stamps a fresh timestamp and
// keeps the original message ID.
//
// # Triage
//
// [Handler.ProcessMessages] asks a [TriageFunc] for an [Action] per dead
// letter: replay, skip or delete. Deletes are counted only.
//
// # Alerts
//
// [EvaluateThresholds] is a pure function over [Stats]; [Handler.CheckAlertThresholds]
// pairs it with a fresh snapshot. A [Monitor] runs that check on a cron
// schedule (default "@every 1m") and calls an [AlertFunc] when tripped.
package dlq
