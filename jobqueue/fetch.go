package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/consumer"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// errNotDue marks a job whose StartAfter has not yet passed.
var errNotDue = errors.New("job not due")

// Fetch reads candidate envelopes for the queue named name and activates
// the jobs that are due. Envelopes for jobs unknown to this process are
// adopted; cancelled, finished, already active and superseded envelopes
// are dropped; envelopes not yet due are republished for a later fetch.
func (q *Queue) Fetch(ctx context.Context, name string, opts FetchOptions) ([]*job.Job, error) {
	if !q.isStarted() {
		return nil, conveyor.ErrQueueNotStarted
	}
	topic, err := message.TopicForQueue(name)
	if err != nil {
		return nil, err
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	envs, err := q.consumer.Consume(ctx, topic,
		consumer.Group(q.group, q.instance),
		consumer.Limit(batch),
	)
	if err != nil {
		return nil, fmt.Errorf("conveyor/jobqueue: fetch %s: %w", name, err)
	}

	now := q.now()
	jobs := make([]*job.Job, 0, len(envs))
	for _, env := range envs {
		if j := q.accept(ctx, env, now); j != nil {
			jobs = append(jobs, j)
		}
	}

	if opts.Priority {
		sort.SliceStable(jobs, func(a, b int) bool {
			return jobs[a].Priority > jobs[b].Priority
		})
	}
	return jobs, nil
}

// accept decides what to do with one candidate envelope and returns the
// activated job, or nil when the envelope is dropped or deferred.
func (q *Queue) accept(ctx context.Context, env *message.Envelope, now time.Time) *job.Job {
	var snap job.Job
	if err := json.Unmarshal(env.Data, &snap); err != nil || snap.ID.IsNil() {
		q.logger.Warn("skipping malformed job envelope",
			slog.String("message_id", env.ID),
			slog.Any("error", err),
		)
		return nil
	}

	known, adopted := q.registry.Adopt(&snap)
	if !adopted && snap.RetryCount < known.RetryCount {
		q.drop(env, known, "superseded")
		return nil
	}
	if known.State.Terminal() || known.State == job.StateActive {
		q.drop(env, known, string(known.State))
		return nil
	}

	if known.StartAfter.After(now) {
		q.postpone(ctx, env, known)
		return nil
	}

	activated, err := q.registry.Update(known.ID, func(j *job.Job) error {
		if j.StartAfter.After(now) {
			return errNotDue
		}
		return j.Transition(job.StateActive, now)
	})
	if err != nil {
		// Another fetch activated or cancelled the job in between.
		q.drop(env, known, err.Error())
		return nil
	}

	q.extensions.EmitJobActivated(ctx, activated)
	return activated
}

// postpone republishes a not-yet-due envelope unchanged. The envelope
// was consumed by this fetch, so a failed republish leaves the job
// pending until maintenance sends it again.
func (q *Queue) postpone(ctx context.Context, env *message.Envelope, j *job.Job) {
	if res := q.producer.Publish(ctx, env); !res.Success {
		q.logger.Error("failed to republish deferred job",
			slog.String("job_id", j.ID.String()),
			slog.String("error", res.Err.Error()),
		)
		q.markPending(j.ID)
		return
	}
	q.logger.Debug("job deferred",
		slog.String("job_id", j.ID.String()),
		slog.Time("start_after", j.StartAfter),
	)
}

func (q *Queue) drop(env *message.Envelope, j *job.Job, why string) {
	q.logger.Debug("dropping job envelope",
		slog.String("job_id", j.ID.String()),
		slog.String("message_id", env.ID),
		slog.String("reason", why),
	)
}
