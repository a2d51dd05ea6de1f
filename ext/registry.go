package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type messageProducedEntry struct {
	name string
	hook MessageProduced
}

type produceFailedEntry struct {
	name string
	hook ProduceFailed
}

type messageProcessedEntry struct {
	name string
	hook MessageProcessed
}

type messageRetryingEntry struct {
	name string
	hook MessageRetrying
}

type messageDeadLetteredEntry struct {
	name string
	hook MessageDeadLettered
}

type jobCreatedEntry struct {
	name string
	hook JobCreated
}

type jobActivatedEntry struct {
	name string
	hook JobActivated
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type jobCancelledEntry struct {
	name string
	hook JobCancelled
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
// Register all extensions before emitting; emits are then safe for
// concurrent use.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	messageProduced     []messageProducedEntry
	produceFailed       []produceFailedEntry
	messageProcessed    []messageProcessedEntry
	messageRetrying     []messageRetryingEntry
	messageDeadLettered []messageDeadLetteredEntry
	jobCreated          []jobCreatedEntry
	jobActivated        []jobActivatedEntry
	jobCompleted        []jobCompletedEntry
	jobRetrying         []jobRetryingEntry
	jobFailed           []jobFailedEntry
	jobCancelled        []jobCancelledEntry
	shutdown            []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(MessageProduced); ok {
		r.messageProduced = append(r.messageProduced, messageProducedEntry{name, h})
	}
	if h, ok := e.(ProduceFailed); ok {
		r.produceFailed = append(r.produceFailed, produceFailedEntry{name, h})
	}
	if h, ok := e.(MessageProcessed); ok {
		r.messageProcessed = append(r.messageProcessed, messageProcessedEntry{name, h})
	}
	if h, ok := e.(MessageRetrying); ok {
		r.messageRetrying = append(r.messageRetrying, messageRetryingEntry{name, h})
	}
	if h, ok := e.(MessageDeadLettered); ok {
		r.messageDeadLettered = append(r.messageDeadLettered, messageDeadLetteredEntry{name, h})
	}
	if h, ok := e.(JobCreated); ok {
		r.jobCreated = append(r.jobCreated, jobCreatedEntry{name, h})
	}
	if h, ok := e.(JobActivated); ok {
		r.jobActivated = append(r.jobActivated, jobActivatedEntry{name, h})
	}
	if h, ok := e.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, h})
	}
	if h, ok := e.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name, h})
	}
	if h, ok := e.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, h})
	}
	if h, ok := e.(JobCancelled); ok {
		r.jobCancelled = append(r.jobCancelled, jobCancelledEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Message event emitters
// ──────────────────────────────────────────────────

// EmitMessageProduced notifies all extensions that implement MessageProduced.
func (r *Registry) EmitMessageProduced(ctx context.Context, env *message.Envelope, off broker.Offset) {
	for _, e := range r.messageProduced {
		if err := e.hook.OnMessageProduced(ctx, env, off); err != nil {
			r.logHookError("OnMessageProduced", e.name, err)
		}
	}
}

// EmitProduceFailed notifies all extensions that implement ProduceFailed.
func (r *Registry) EmitProduceFailed(ctx context.Context, env *message.Envelope, attempts int, produceErr error) {
	for _, e := range r.produceFailed {
		if err := e.hook.OnProduceFailed(ctx, env, attempts, produceErr); err != nil {
			r.logHookError("OnProduceFailed", e.name, err)
		}
	}
}

// EmitMessageProcessed notifies all extensions that implement MessageProcessed.
func (r *Registry) EmitMessageProcessed(ctx context.Context, env *message.Envelope, elapsed time.Duration) {
	for _, e := range r.messageProcessed {
		if err := e.hook.OnMessageProcessed(ctx, env, elapsed); err != nil {
			r.logHookError("OnMessageProcessed", e.name, err)
		}
	}
}

// EmitMessageRetrying notifies all extensions that implement MessageRetrying.
func (r *Registry) EmitMessageRetrying(ctx context.Context, env *message.Envelope, retryCount int, handlerErr error) {
	for _, e := range r.messageRetrying {
		if err := e.hook.OnMessageRetrying(ctx, env, retryCount, handlerErr); err != nil {
			r.logHookError("OnMessageRetrying", e.name, err)
		}
	}
}

// EmitMessageDeadLettered notifies all extensions that implement MessageDeadLettered.
func (r *Registry) EmitMessageDeadLettered(ctx context.Context, dl *message.DeadLetter) {
	for _, e := range r.messageDeadLettered {
		if err := e.hook.OnMessageDeadLettered(ctx, dl); err != nil {
			r.logHookError("OnMessageDeadLettered", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobCreated notifies all extensions that implement JobCreated.
func (r *Registry) EmitJobCreated(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCreated {
		if err := e.hook.OnJobCreated(ctx, j); err != nil {
			r.logHookError("OnJobCreated", e.name, err)
		}
	}
}

// EmitJobActivated notifies all extensions that implement JobActivated.
func (r *Registry) EmitJobActivated(ctx context.Context, j *job.Job) {
	for _, e := range r.jobActivated {
		if err := e.hook.OnJobActivated(ctx, j); err != nil {
			r.logHookError("OnJobActivated", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all extensions that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobRetrying notifies all extensions that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		if err := e.hook.OnJobRetrying(ctx, j, nextRunAt); err != nil {
			r.logHookError("OnJobRetrying", e.name, err)
		}
	}
}

// EmitJobFailed notifies all extensions that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, reason string) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, reason); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// EmitJobCancelled notifies all extensions that implement JobCancelled.
func (r *Registry) EmitJobCancelled(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCancelled {
		if err := e.hook.OnJobCancelled(ctx, j); err != nil {
			r.logHookError("OnJobCancelled", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
