package ext

import (
	"context"
	"time"

	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Message lifecycle hooks
// ──────────────────────────────────────────────────

// MessageProduced is called after an envelope is accepted by the broker.
type MessageProduced interface {
	OnMessageProduced(ctx context.Context, env *message.Envelope, off broker.Offset) error
}

// ProduceFailed is called when a publish gives up after all attempts.
type ProduceFailed interface {
	OnProduceFailed(ctx context.Context, env *message.Envelope, attempts int, err error) error
}

// MessageProcessed is called after a handler accepts an envelope.
type MessageProcessed interface {
	OnMessageProcessed(ctx context.Context, env *message.Envelope, elapsed time.Duration) error
}

// MessageRetrying is called when a failed envelope is requeued.
type MessageRetrying interface {
	OnMessageRetrying(ctx context.Context, env *message.Envelope, retryCount int, err error) error
}

// MessageDeadLettered is called when an envelope is sent to its DLQ.
type MessageDeadLettered interface {
	OnMessageDeadLettered(ctx context.Context, dl *message.DeadLetter) error
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobCreated is called after a job is sent.
type JobCreated interface {
	OnJobCreated(ctx context.Context, j *job.Job) error
}

// JobActivated is called when a fetch activates a job.
type JobActivated interface {
	OnJobActivated(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job completes.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when a failed job is scheduled again.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, nextRunAt time.Time) error
}

// JobFailed is called when a job exhausts its retries.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, reason string) error
}

// JobCancelled is called when a job is cancelled.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
