package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// worker is one Work loop.
type worker struct {
	id       id.WorkerID
	name     string
	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	// sleepCtx is cancelled by stop so an idle worker wakes early.
	// Handlers never see it.
	sleepCtx    context.Context
	cancelSleep context.CancelFunc
}

func (w *worker) stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		w.cancelSleep()
	})
}

func (w *worker) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Work starts a loop that fetches jobs from the queue named name and
// runs h on each, completing or failing the job by its outcome. An idle
// loop sleeps PollingInterval. The returned worker ID stops it through
// OffWork.
func (q *Queue) Work(ctx context.Context, name string, h job.HandlerFunc, opts WorkOptions) (id.WorkerID, error) {
	if !q.isStarted() {
		return id.Nil, conveyor.ErrQueueNotStarted
	}
	if _, err := message.TopicForQueue(name); err != nil {
		return id.Nil, err
	}
	if opts.PollingInterval <= 0 {
		opts.PollingInterval = DefaultPollingInterval
	}

	sleepCtx, cancel := context.WithCancel(ctx)
	w := &worker{
		id:          id.NewWorkerID(),
		name:        name,
		done:        make(chan struct{}),
		sleepCtx:    sleepCtx,
		cancelSleep: cancel,
	}

	q.mu.Lock()
	q.workers[w.id] = w
	q.mu.Unlock()

	go q.workLoop(ctx, w, h, opts)

	q.logger.Info("job worker started",
		slog.String("worker_id", w.id.String()),
		slog.String("name", name),
		slog.Duration("polling_interval", opts.PollingInterval),
	)
	return w.id, nil
}

// OffWork stops a worker started by Work and waits for its loop to exit.
// A job already running is allowed to finish.
func (q *Queue) OffWork(ctx context.Context, workerID id.WorkerID) error {
	q.mu.Lock()
	w, ok := q.workers[workerID]
	delete(q.workers, workerID)
	q.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", conveyor.ErrWorkerNotFound, workerID)
	}
	w.stop()
	return w.wait(ctx)
}

func (q *Queue) workLoop(ctx context.Context, w *worker, h job.HandlerFunc, opts WorkOptions) {
	defer close(w.done)
	defer w.cancelSleep()

	fetch := FetchOptions{BatchSize: opts.BatchSize, Priority: opts.Priority}
	for {
		if w.stopped.Load() || ctx.Err() != nil {
			return
		}

		jobs, err := q.Fetch(ctx, w.name, fetch)
		if err != nil {
			q.logger.Error("job fetch failed",
				slog.String("worker_id", w.id.String()),
				slog.String("error", err.Error()),
			)
		}

		for _, j := range jobs {
			q.run(ctx, w, h, j)
		}

		if len(jobs) == 0 {
			_ = q.sleep(w.sleepCtx, opts.PollingInterval) //nolint:errcheck // wake-up is checked at loop top
		}
	}
}

// run executes one job and settles it.
func (q *Queue) run(ctx context.Context, w *worker, h job.HandlerFunc, j *job.Job) {
	err := safeCall(ctx, h, j)
	if err == nil {
		if cErr := q.Complete(ctx, w.name, j.ID, j.Output); cErr != nil {
			q.logger.Error("job complete failed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", cErr.Error()),
			)
		}
		return
	}

	q.logger.Warn("job handler failed",
		slog.String("worker_id", w.id.String()),
		slog.String("job_id", j.ID.String()),
		slog.Int("retry_count", j.RetryCount),
		slog.String("error", err.Error()),
	)
	if fErr := q.Fail(ctx, w.name, j.ID, err); fErr != nil {
		q.logger.Error("job fail failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", fErr.Error()),
		)
	}
}

// safeCall runs h and converts a panic into an error.
func safeCall(ctx context.Context, h job.HandlerFunc, j *job.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic running job %s: %v", j.ID, r)
		}
	}()
	return h(ctx, j)
}
