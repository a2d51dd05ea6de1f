package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/backoff"
	"github.com/xraph/conveyor/consumer"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/producer"
)

// Jobs is the job-queue surface shared by the real queue and its no-op
// stand-in.
type Jobs interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, name string, data any, opts job.SendOptions) (id.JobID, error)
	Fetch(ctx context.Context, name string, opts FetchOptions) ([]*job.Job, error)
	Work(ctx context.Context, name string, h job.HandlerFunc, opts WorkOptions) (id.WorkerID, error)
	OffWork(ctx context.Context, workerID id.WorkerID) error
	Complete(ctx context.Context, name string, jobID id.JobID, output any) error
	Fail(ctx context.Context, name string, jobID id.JobID, output any) error
	Cancel(ctx context.Context, name string, jobIDs ...id.JobID) error
	GetJobByID(ctx context.Context, name string, jobID id.JobID) (*job.Job, error)
}

var (
	_ Jobs = (*Queue)(nil)
	_ Jobs = Noop{}
)

// configurable is implemented by publishers that can report missing
// broker configuration.
type configurable interface {
	Configured() bool
}

// Queue maps job operations onto topics through a producer and consumer.
type Queue struct {
	producer   producer.Publisher
	consumer   consumer.Processor
	registry   *job.Registry
	extensions *ext.Registry
	logger     *slog.Logger
	now        func() time.Time
	sleep      producer.SleepFunc

	group               string
	instance            string
	maintenanceInterval time.Duration

	mu        sync.Mutex
	started   bool
	workers   map[id.WorkerID]*worker
	pending   map[id.JobID]struct{}
	stopMaint context.CancelFunc
	maintDone chan struct{}
}

// New creates a job queue. It must be started before use.
func New(p producer.Publisher, c consumer.Processor, opts ...Option) *Queue {
	q := &Queue{
		producer:            p,
		consumer:            c,
		registry:            job.NewRegistry(),
		logger:              slog.Default(),
		now:                 time.Now,
		sleep:               sleepContext,
		group:               DefaultGroup,
		instance:            id.NewWorkerID().String(),
		maintenanceInterval: DefaultMaintenanceInterval,
		workers:             make(map[id.WorkerID]*worker),
		pending:             make(map[id.JobID]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.extensions == nil {
		q.extensions = ext.NewRegistry(q.logger)
	}
	return q
}

// Registry exposes the job registry for inspection.
func (q *Queue) Registry() *job.Registry { return q.registry }

// Start marks the queue ready and launches the maintenance loop. It is
// the one call that fails hard on a misconfigured producer.
func (q *Queue) Start(ctx context.Context) error {
	if c, ok := q.producer.(configurable); q.producer == nil || (ok && !c.Configured()) {
		return fmt.Errorf("conveyor/jobqueue: start: %w", conveyor.ErrNotConfigured)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return nil
	}
	q.started = true

	if q.maintenanceInterval > 0 {
		mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		q.stopMaint = cancel
		q.maintDone = make(chan struct{})
		go q.maintain(mctx, q.maintDone)
	}

	q.logger.Info("job queue started",
		slog.String("group", q.group),
		slog.Duration("maintenance_interval", q.maintenanceInterval),
	)
	return nil
}

// Stop stops every worker and the maintenance loop. Workers finish the
// job they are running first unless ctx expires.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	workers := q.workers
	q.workers = make(map[id.WorkerID]*worker)
	stopMaint, maintDone := q.stopMaint, q.maintDone
	q.stopMaint, q.maintDone = nil, nil
	q.mu.Unlock()

	for _, w := range workers {
		w.stop()
	}
	if stopMaint != nil {
		stopMaint()
	}

	var errs []error
	for _, w := range workers {
		errs = append(errs, w.wait(ctx))
	}
	if maintDone != nil {
		select {
		case <-maintDone:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	q.extensions.EmitShutdown(ctx)
	q.logger.Info("job queue stopped", slog.Int("workers", len(workers)))
	return errors.Join(errs...)
}

func (q *Queue) isStarted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started
}

// ──────────────────────────────────────────────────
// Send
// ──────────────────────────────────────────────────

// Send records a new job and publishes it to the topic mapped from name.
// A singleton conflict returns id.Nil with ErrSingletonConflict.
func (q *Queue) Send(ctx context.Context, name string, data any, opts job.SendOptions) (id.JobID, error) {
	if !q.isStarted() {
		return id.Nil, conveyor.ErrQueueNotStarted
	}
	topic, err := message.TopicForQueue(name)
	if err != nil {
		return id.Nil, err
	}

	now := q.now()
	j, err := job.New(name, data, opts, now)
	if err != nil {
		return id.Nil, fmt.Errorf("conveyor/jobqueue: send: %w", err)
	}
	if err := q.registry.Add(j); err != nil {
		return id.Nil, err
	}

	if err := q.publish(ctx, topic, j, true); err != nil {
		// Release the singleton key held by a job that never reached
		// the broker.
		_, _ = q.registry.Update(j.ID, func(stored *job.Job) error { //nolint:errcheck // best effort
			return stored.Transition(job.StateCancelled, now)
		})
		return id.Nil, fmt.Errorf("conveyor/jobqueue: send: %w", err)
	}

	q.extensions.EmitJobCreated(ctx, j)
	q.logger.Debug("job sent",
		slog.String("job_id", j.ID.String()),
		slog.String("name", name),
		slog.Time("start_after", j.StartAfter),
	)
	return j.ID, nil
}

// ──────────────────────────────────────────────────
// Complete / Fail / Cancel
// ──────────────────────────────────────────────────

// Complete marks an active job completed and stores output.
func (q *Queue) Complete(ctx context.Context, name string, jobID id.JobID, output any) error {
	raw, err := marshalOutput(output)
	if err != nil {
		return err
	}

	now := q.now()
	j, err := q.update(name, jobID, func(j *job.Job) error {
		if err := j.Transition(job.StateCompleted, now); err != nil {
			return err
		}
		j.Output = raw
		return nil
	})
	if err != nil {
		return err
	}

	var elapsed time.Duration
	if j.StartedOn != nil {
		elapsed = now.Sub(*j.StartedOn)
	}
	q.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

// Fail records a failed attempt. Once RetryCount reaches RetryLimit the
// job becomes failed and a dead letter is published; otherwise it moves
// to retry and is republished with a delayed StartAfter.
func (q *Queue) Fail(ctx context.Context, name string, jobID id.JobID, output any) error {
	raw, err := marshalOutput(output)
	if err != nil {
		return err
	}
	return q.fail(ctx, name, jobID, raw, failureReason(output, raw))
}

func (q *Queue) fail(ctx context.Context, name string, jobID id.JobID, raw json.RawMessage, reason string) error {
	now := q.now()
	j, err := q.update(name, jobID, func(j *job.Job) error {
		if j.State != job.StateActive {
			return fmt.Errorf("%w: cannot fail a %s job", conveyor.ErrInvalidState, j.State)
		}
		j.RetryCount++
		j.Output = raw
		if j.RetryCount >= j.RetryLimit {
			return j.Transition(job.StateFailed, now)
		}
		if err := j.Transition(job.StateRetry, now); err != nil {
			return err
		}
		j.StartAfter = now.Add(backoff.Scaled(j.RetryDelay, j.RetryCount, j.RetryBackoff))
		return nil
	})
	if err != nil {
		return err
	}

	topic, _ := message.TopicForQueue(j.Name) //nolint:errcheck // validated by update
	if j.State == job.StateFailed {
		q.extensions.EmitJobFailed(ctx, j, reason)
		return q.deadLetter(ctx, topic, j, reason)
	}

	q.extensions.EmitJobRetrying(ctx, j, j.StartAfter)
	if err := q.publish(ctx, topic, j, true); err != nil {
		q.markPending(j.ID)
		return fmt.Errorf("conveyor/jobqueue: republish %s: %w", j.ID, err)
	}
	return nil
}

// Cancel marks each listed job cancelled. It touches only the registry:
// fetch drops any envelope whose job is cancelled.
func (q *Queue) Cancel(ctx context.Context, name string, jobIDs ...id.JobID) error {
	now := q.now()
	var errs []error
	for _, jobID := range jobIDs {
		j, err := q.update(name, jobID, func(j *job.Job) error {
			return j.Transition(job.StateCancelled, now)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		q.extensions.EmitJobCancelled(ctx, j)
	}
	return errors.Join(errs...)
}

// GetJobByID returns a copy of the job.
func (q *Queue) GetJobByID(_ context.Context, name string, jobID id.JobID) (*job.Job, error) {
	topic, err := message.TopicForQueue(name)
	if err != nil {
		return nil, err
	}
	j, ok := q.registry.Get(jobID)
	if !ok || !belongs(j, topic) {
		return nil, fmt.Errorf("%w: %s", conveyor.ErrJobNotFound, jobID)
	}
	return j, nil
}

// update applies fn to a job that belongs to the queue named name.
func (q *Queue) update(name string, jobID id.JobID, fn func(*job.Job) error) (*job.Job, error) {
	topic, err := message.TopicForQueue(name)
	if err != nil {
		return nil, err
	}
	return q.registry.Update(jobID, func(j *job.Job) error {
		if !belongs(j, topic) {
			return fmt.Errorf("%w: %s", conveyor.ErrJobNotFound, jobID)
		}
		return fn(j)
	})
}

// ──────────────────────────────────────────────────
// Broker plumbing
// ──────────────────────────────────────────────────

// envelope builds the broker envelope for j. Its ID is the job ID.
func (q *Queue) envelope(topic message.Topic, j *job.Job) (*message.Envelope, error) {
	env, err := message.New(topic, j, q.now())
	if err != nil {
		return nil, err
	}
	env.ID = j.ID.String()
	env.RetryCount = j.RetryCount
	return env, nil
}

func (q *Queue) publish(ctx context.Context, topic message.Topic, j *job.Job, retry bool) error {
	env, err := q.envelope(topic, j)
	if err != nil {
		return err
	}
	var res producer.Result
	if retry {
		res = q.producer.Publish(ctx, env)
	} else {
		res = q.producer.PublishOnce(ctx, env)
	}
	if !res.Success {
		return res.Err
	}
	return nil
}

func (q *Queue) deadLetter(ctx context.Context, topic message.Topic, j *job.Job, reason string) error {
	env, err := q.envelope(topic, j)
	if err != nil {
		return err
	}
	dl := message.NewDeadLetter(env, reason, q.now())
	outer, err := dl.Wrap(q.now())
	if err != nil {
		return err
	}
	if res := q.producer.Publish(ctx, outer); !res.Success {
		q.logger.Error("job dead letter publish failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", res.Err.Error()),
		)
		return fmt.Errorf("conveyor/jobqueue: dead letter %s: %w", j.ID, res.Err)
	}

	q.extensions.EmitMessageDeadLettered(ctx, dl)
	q.logger.Warn("job failed permanently",
		slog.String("job_id", j.ID.String()),
		slog.String("name", j.Name),
		slog.Int("retry_count", j.RetryCount),
		slog.String("reason", reason),
	)
	return nil
}

// belongs reports whether j was sent to the queue mapped to topic.
func belongs(j *job.Job, topic message.Topic) bool {
	t, err := message.TopicForQueue(j.Name)
	return err == nil && t == topic
}

func marshalOutput(output any) (json.RawMessage, error) {
	switch v := output.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case error:
		return json.Marshal(map[string]string{"error": v.Error()})
	}
	raw, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("conveyor/jobqueue: marshal output: %w", err)
	}
	return raw, nil
}

// failureReason picks a human-readable reason for a dead letter.
func failureReason(output any, raw json.RawMessage) string {
	switch v := output.(type) {
	case error:
		return v.Error()
	case string:
		return v
	}
	var shaped struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &shaped) == nil && shaped.Error != "" {
		return shaped.Error
	}
	if len(raw) > 0 {
		return string(raw)
	}
	return "job failed"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
