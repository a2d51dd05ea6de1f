package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// Compile-time interface checks.
var (
	_ ext.Extension           = (*Extension)(nil)
	_ ext.MessageProduced     = (*Extension)(nil)
	_ ext.ProduceFailed       = (*Extension)(nil)
	_ ext.MessageProcessed    = (*Extension)(nil)
	_ ext.MessageRetrying     = (*Extension)(nil)
	_ ext.MessageDeadLettered = (*Extension)(nil)
	_ ext.JobCreated          = (*Extension)(nil)
	_ ext.JobActivated        = (*Extension)(nil)
	_ ext.JobCompleted        = (*Extension)(nil)
	_ ext.JobRetrying         = (*Extension)(nil)
	_ ext.JobFailed           = (*Extension)(nil)
	_ ext.JobCancelled        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry in the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges conveyor lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Message lifecycle hooks ─────────────────────────

// OnMessageProduced implements ext.MessageProduced.
func (e *Extension) OnMessageProduced(ctx context.Context, env *message.Envelope, off broker.Offset) error {
	return e.record(ctx, ActionMessageProduced, SeverityInfo, OutcomeSuccess,
		ResourceMessage, env.ID, CategoryMessage, nil,
		"topic", env.Topic.String(),
		"partition", off.Partition,
		"offset", off.Offset,
	)
}

// OnProduceFailed implements ext.ProduceFailed.
func (e *Extension) OnProduceFailed(ctx context.Context, env *message.Envelope, attempts int, produceErr error) error {
	return e.record(ctx, ActionProduceFailed, SeverityCritical, OutcomeFailure,
		ResourceMessage, env.ID, CategoryMessage, produceErr,
		"topic", env.Topic.String(),
		"attempts", attempts,
	)
}

// OnMessageProcessed implements ext.MessageProcessed.
func (e *Extension) OnMessageProcessed(ctx context.Context, env *message.Envelope, elapsed time.Duration) error {
	return e.record(ctx, ActionMessageProcessed, SeverityInfo, OutcomeSuccess,
		ResourceMessage, env.ID, CategoryMessage, nil,
		"topic", env.Topic.String(),
		"retry_count", env.RetryCount,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnMessageRetrying implements ext.MessageRetrying.
func (e *Extension) OnMessageRetrying(ctx context.Context, env *message.Envelope, retryCount int, handlerErr error) error {
	return e.record(ctx, ActionMessageRetrying, SeverityWarning, OutcomeFailure,
		ResourceMessage, env.ID, CategoryMessage, handlerErr,
		"topic", env.Topic.String(),
		"retry_count", retryCount,
	)
}

// OnMessageDeadLettered implements ext.MessageDeadLettered.
func (e *Extension) OnMessageDeadLettered(ctx context.Context, dl *message.DeadLetter) error {
	return e.record(ctx, ActionMessageDeadLettered, SeverityCritical, OutcomeFailure,
		ResourceMessage, dl.OriginalMessage.ID, CategoryMessage, errors.New(dl.ErrorReason),
		"topic", dl.OriginalTopic.String(),
		"retry_count", dl.OriginalMessage.RetryCount,
		"failed_at", dl.FailedTime().UTC().Format(time.RFC3339),
	)
}

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (e *Extension) OnJobCreated(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobCreated, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID.String(), CategoryJob, nil,
		"queue", j.Name,
		"priority", j.Priority,
	)
}

// OnJobActivated implements ext.JobActivated.
func (e *Extension) OnJobActivated(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobActivated, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID.String(), CategoryJob, nil,
		"queue", j.Name,
		"retry_count", j.RetryCount,
	)
}

// OnJobCompleted implements ext.JobCompleted.
func (e *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return e.record(ctx, ActionJobCompleted, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID.String(), CategoryJob, nil,
		"queue", j.Name,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnJobRetrying implements ext.JobRetrying.
func (e *Extension) OnJobRetrying(ctx context.Context, j *job.Job, nextRunAt time.Time) error {
	return e.record(ctx, ActionJobRetrying, SeverityWarning, OutcomeFailure,
		ResourceJob, j.ID.String(), CategoryJob, nil,
		"queue", j.Name,
		"retry_count", j.RetryCount,
		"retry_limit", j.RetryLimit,
		"next_run_at", nextRunAt.UTC().Format(time.RFC3339),
	)
}

// OnJobFailed implements ext.JobFailed.
func (e *Extension) OnJobFailed(ctx context.Context, j *job.Job, reason string) error {
	return e.record(ctx, ActionJobFailed, SeverityCritical, OutcomeFailure,
		ResourceJob, j.ID.String(), CategoryJob, errors.New(reason),
		"queue", j.Name,
		"retry_count", j.RetryCount,
		"retry_limit", j.RetryLimit,
	)
}

// OnJobCancelled implements ext.JobCancelled.
func (e *Extension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobCancelled, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID.String(), CategoryJob, nil,
		"queue", j.Name,
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// kvPairs are added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil && err.Error() != "" {
		reason = err.Error()
		meta["error"] = reason
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("resource_id", resourceID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
