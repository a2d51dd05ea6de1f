// Package ext defines the extension system for conveyor.
//
// Extensions are notified of message and job lifecycle events and can
// react to them by recording metrics, writing audit logs and so on.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	func (e *MyExtension) OnMessageDeadLettered(ctx context.Context, dl *message.DeadLetter) error {
//	    log.Printf("message %s dead-lettered: %s", dl.OriginalMessage.ID, dl.ErrorReason)
//	    return nil
//	}
//
// # Message Hooks
//
//   - [MessageProduced] — an envelope was accepted by the broker
//   - [ProduceFailed] — a publish gave up after all attempts
//   - [MessageProcessed] — a consumer handler accepted an envelope
//   - [MessageRetrying] — a failed envelope was requeued
//   - [MessageDeadLettered] — an envelope was sent to its DLQ
//
// # Job Hooks
//
//   - [JobCreated], [JobActivated], [JobCompleted]
//   - [JobRetrying], [JobFailed], [JobCancelled]
//
// # Other Hooks
//
//   - [Shutdown] — the engine is shutting down
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never propagated.
package ext
