// Package job defines the job entity, its state machine, send options and
// the process-local job registry used by the jobqueue adapter.
//
// # State Machine
//
//	created → active → completed
//	created → active → retry → active → ...
//	created → active → failed
//	created | retry | active → cancelled
//
// completed, failed and cancelled are terminal. [Job.Transition] rejects
// any other move with conveyor.ErrInvalidState.
//
// # Sending
//
// [New] resolves [SendOptions] into a job: retry limit (default 2),
// expiry budget (default 15 minutes), not-before time (default now) and
// retention (default 14 days, counted from the not-before time).
//
//	opts := job.NewSendOptions(
//	    job.WithPriority(5),
//	    job.WithSingletonKey("nightly-report"),
//	    job.WithStartAfterSeconds(60),
//	)
//
// # Registry
//
// [Registry] is the authoritative job table for one process. It is not
// shared between instances, so singleton and state guarantees hold only
// within a single process.
//
// # Handlers
//
// [Handle] adapts a typed function into a [HandlerFunc]:
//
//	var SendEmail = job.Handle(func(ctx context.Context, in EmailInput) error {
//	    return mailer.Send(in.To, in.Subject, in.Body)
//	})
package job
