// Package audithook is a conveyor extension that bridges message and job
// lifecycle events to an audit trail backend.
//
// Every lifecycle hook emits a structured audit event through the
// [Recorder] interface. Normal operations are recorded at info severity,
// retries at warning, and terminal failures (exhausted publishes, dead
// letters, failed jobs) at critical.
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return store.Append(ctx, evt)
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionMessageDeadLettered,
//	        audithook.ActionJobFailed,
//	    ),
//	)
package audithook
