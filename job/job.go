package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StateCreated means the job was sent and is waiting to be fetched.
	StateCreated State = "created"
	// StateRetry means the job failed and is waiting for its next attempt.
	StateRetry State = "retry"
	// StateActive means the job was fetched and is being worked.
	StateActive State = "active"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateCancelled means the job was cancelled before finishing.
	StateCancelled State = "cancelled"
	// StateFailed means the job exhausted its retries.
	StateFailed State = "failed"
)

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateCreated: {StateActive, StateCancelled},
	StateRetry:   {StateActive, StateCancelled},
	StateActive:  {StateCompleted, StateRetry, StateFailed, StateCancelled},
}

// Terminal reports whether s is completed, failed or cancelled.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether s may move to next.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Job is a stateful unit of work carried over a topic envelope.
type Job struct {
	ID           id.JobID        `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	State        State           `json:"state"`
	Priority     int             `json:"priority"`
	RetryLimit   int             `json:"retry_limit"`
	RetryCount   int             `json:"retry_count"`
	RetryDelay   time.Duration   `json:"retry_delay"`
	RetryBackoff bool            `json:"retry_backoff"`
	ExpireIn     time.Duration   `json:"expire_in"`
	StartAfter   time.Time       `json:"start_after"`
	StartedOn    *time.Time      `json:"started_on,omitempty"`
	CreatedOn    time.Time       `json:"created_on"`
	CompletedOn  *time.Time      `json:"completed_on,omitempty"`
	SingletonKey string          `json:"singleton_key,omitempty"`
	KeepUntil    time.Time       `json:"keep_until"`
}

// Transition moves the job to next, stamping StartedOn or CompletedOn.
func (j *Job) Transition(next State, now time.Time) error {
	if !j.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", conveyor.ErrInvalidState, j.State, next)
	}
	j.State = next
	switch {
	case next == StateActive:
		j.StartedOn = &now
	case next.Terminal():
		j.CompletedOn = &now
	}
	return nil
}

// Expired reports whether an active job has outlived ExpireIn.
func (j *Job) Expired(now time.Time) bool {
	if j.State != StateActive || j.StartedOn == nil || j.ExpireIn <= 0 {
		return false
	}
	return now.After(j.StartedOn.Add(j.ExpireIn))
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Data != nil {
		cp.Data = append(json.RawMessage(nil), j.Data...)
	}
	if j.Output != nil {
		cp.Output = append(json.RawMessage(nil), j.Output...)
	}
	if j.StartedOn != nil {
		t := *j.StartedOn
		cp.StartedOn = &t
	}
	if j.CompletedOn != nil {
		t := *j.CompletedOn
		cp.CompletedOn = &t
	}
	return &cp
}
