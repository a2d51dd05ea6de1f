package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionMessageProduced     = "message.produced"
	ActionProduceFailed       = "message.produce_failed"
	ActionMessageProcessed    = "message.processed"
	ActionMessageRetrying     = "message.retrying"
	ActionMessageDeadLettered = "message.dead_lettered"
	ActionJobCreated          = "job.created"
	ActionJobActivated        = "job.activated"
	ActionJobCompleted        = "job.completed"
	ActionJobRetrying         = "job.retrying"
	ActionJobFailed           = "job.failed"
	ActionJobCancelled        = "job.cancelled"
)

// Audit event categories group related actions.
const (
	CategoryMessage = "conveyor.message"
	CategoryJob     = "conveyor.job"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceMessage = "message"
	ResourceJob     = "job"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionMessageProduced,
		ActionProduceFailed,
		ActionMessageProcessed,
		ActionMessageRetrying,
		ActionMessageDeadLettered,
		ActionJobCreated,
		ActionJobActivated,
		ActionJobCompleted,
		ActionJobRetrying,
		ActionJobFailed,
		ActionJobCancelled,
	}
}
