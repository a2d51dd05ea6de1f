package conveyor

import "errors"

var (
	// Configuration errors.
	ErrNotConfigured = errors.New("conveyor: producer not configured")
	ErrDisabled      = errors.New("conveyor: queue disabled by feature flag")

	// Topic errors.
	ErrUnknownTopic = errors.New("conveyor: unknown topic")
	ErrUnknownQueue = errors.New("conveyor: unknown queue name")

	// Job queue errors.
	ErrQueueNotStarted   = errors.New("conveyor: job queue not started")
	ErrJobNotFound       = errors.New("conveyor: job not found")
	ErrWorkerNotFound    = errors.New("conveyor: worker not found")
	ErrSingletonConflict = errors.New("conveyor: singleton key already held by an active job")

	// State errors.
	ErrInvalidState       = errors.New("conveyor: invalid state transition")
	ErrMaxRetriesExceeded = errors.New("conveyor: max retries exceeded")
)
