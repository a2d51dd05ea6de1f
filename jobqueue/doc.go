// Package jobqueue layers job-queue semantics over append/poll topics.
//
// A job is sent as an envelope whose ID is the job ID and whose data is a
// snapshot of the [job.Job]. The authoritative state lives in a
// process-local [job.Registry]; fetch consults it before activating any
// envelope, so a cancelled or already-finished job is never run even if
// a stale copy of its envelope is still sitting in the topic.
//
// State machine:
//
//	created --fetch--> active --complete--> completed
//	active --fail, retries remain--> retry --fetch--> active
//	active --fail, exhausted--> failed (dead letter emitted)
//	any non-terminal --cancel--> cancelled
//
// Queue names map to topics: "execution", "results" and "notifications",
// or the full topic name.
//
//	q := jobqueue.New(producer, consumer)
//	if err := q.Start(ctx); err != nil { ... }
//
//	jobID, err := q.Send(ctx, "execution", payload,
//	    job.NewSendOptions(job.WithSingletonKey("nightly"), job.WithPriority(5)))
//
//	workerID, _ := q.Work(ctx, "execution", handler, jobqueue.WorkOptions{})
//	defer q.OffWork(ctx, workerID)
//
// Singleton, priority and state guarantees hold only within one process.
package jobqueue
