package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
)

// Registry is the process-local authority on job state. It enforces the
// singleton constraint: at most one non-terminal job per singleton key.
// It is safe for concurrent use. Jobs are copied in and out so callers
// never share memory with the registry.
type Registry struct {
	mu         sync.Mutex
	jobs       map[id.JobID]*Job
	singletons map[string]id.JobID
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:       make(map[id.JobID]*Job),
		singletons: make(map[string]id.JobID),
	}
}

// Add records a new job. It fails with ErrSingletonConflict when a
// non-terminal job already holds the same singleton key.
func (r *Registry) Add(j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j.SingletonKey != "" && !j.State.Terminal() {
		if holder, ok := r.singletons[j.SingletonKey]; ok && holder != j.ID {
			return fmt.Errorf("%w: %q held by %s", conveyor.ErrSingletonConflict, j.SingletonKey, holder)
		}
		r.singletons[j.SingletonKey] = j.ID
	}
	r.jobs[j.ID] = j.Clone()
	return nil
}

// Adopt records j only if the registry does not know it yet. It returns
// the registry's copy and whether j was newly adopted. A job whose
// singleton key is already held elsewhere is adopted as cancelled.
func (r *Registry) Adopt(j *Job) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[j.ID]; ok {
		return existing.Clone(), false
	}

	cp := j.Clone()
	if cp.SingletonKey != "" && !cp.State.Terminal() {
		if _, held := r.singletons[cp.SingletonKey]; held {
			cp.State = StateCancelled
		} else {
			r.singletons[cp.SingletonKey] = cp.ID
		}
	}
	r.jobs[cp.ID] = cp
	return cp.Clone(), true
}

// Get returns a copy of the job with the given ID.
func (r *Registry) Get(jobID id.JobID) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

// Update applies fn to the stored job under the registry lock. When fn
// returns an error the job is left unchanged. The singleton key is
// released once the job becomes terminal.
func (r *Registry) Update(jobID id.JobID, fn func(*Job) error) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", conveyor.ErrJobNotFound, jobID)
	}

	cp := stored.Clone()
	if err := fn(cp); err != nil {
		return nil, err
	}
	r.jobs[jobID] = cp
	if cp.State.Terminal() {
		r.release(cp)
	}
	return cp.Clone(), nil
}

// Expired returns copies of every active job past its ExpireIn budget.
func (r *Registry) Expired(now time.Time) []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Job
	for _, j := range r.jobs {
		if j.Expired(now) {
			out = append(out, j.Clone())
		}
	}
	return out
}

// Evict removes terminal jobs whose KeepUntil has passed and returns how
// many were removed.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for jobID, j := range r.jobs {
		if j.State.Terminal() && now.After(j.KeepUntil) {
			delete(r.jobs, jobID)
			n++
		}
	}
	return n
}

// Count returns the number of jobs per state.
func (r *Registry) Count() map[State]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[State]int)
	for _, j := range r.jobs {
		out[j.State]++
	}
	return out
}

// Len returns the number of jobs held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *Registry) release(j *Job) {
	if j.SingletonKey == "" {
		return
	}
	if holder, ok := r.singletons[j.SingletonKey]; ok && holder == j.ID {
		delete(r.singletons, j.SingletonKey)
	}
}
