package jobqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
)

// expiredReason is the failure reason recorded for expired jobs.
const expiredReason = "job expired"

// maintain periodically fails active jobs past ExpireIn, re-sends jobs
// whose envelope was lost and evicts terminal jobs past KeepUntil.
func (q *Queue) maintain(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(q.maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Maintain(ctx)
		}
	}
}

// Maintain runs one maintenance pass and returns how many jobs expired
// and how many were evicted. Jobs left without a broker envelope by a
// failed republish are sent again.
func (q *Queue) Maintain(ctx context.Context) (expired, evicted int) {
	now := q.now()
	republished := q.republishPending(ctx)

	for _, j := range q.registry.Expired(now) {
		if err := q.fail(ctx, j.Name, j.ID, nil, expiredReason); err != nil {
			q.logger.Warn("failed to expire job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		expired++
	}

	evicted = q.registry.Evict(now)
	if expired > 0 || evicted > 0 || republished > 0 {
		counts := q.registry.Count()
		q.logger.Debug("job maintenance",
			slog.Int("expired", expired),
			slog.Int("evicted", evicted),
			slog.Int("republished", republished),
			slog.Int("active", counts[job.StateActive]),
			slog.Int("held", q.registry.Len()),
		)
	}
	return expired, evicted
}

// markPending records that no envelope for jobID is on the broker.
func (q *Queue) markPending(jobID id.JobID) {
	q.mu.Lock()
	q.pending[jobID] = struct{}{}
	q.mu.Unlock()
}

// Pending returns how many jobs are waiting to be re-sent.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// republishPending publishes a fresh envelope for every pending job that
// is still created or retrying. Jobs that moved on are forgotten; jobs
// that fail again stay pending.
func (q *Queue) republishPending(ctx context.Context) int {
	q.mu.Lock()
	ids := make([]id.JobID, 0, len(q.pending))
	for jobID := range q.pending {
		ids = append(ids, jobID)
	}
	q.mu.Unlock()

	n := 0
	for _, jobID := range ids {
		j, ok := q.registry.Get(jobID)
		if !ok || (j.State != job.StateCreated && j.State != job.StateRetry) {
			q.clearPending(jobID)
			continue
		}
		topic, err := message.TopicForQueue(j.Name)
		if err != nil {
			q.clearPending(jobID)
			continue
		}
		if err := q.publish(ctx, topic, j, true); err != nil {
			q.logger.Warn("failed to re-send pending job",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		q.clearPending(jobID)
		n++
	}
	return n
}

func (q *Queue) clearPending(jobID id.JobID) {
	q.mu.Lock()
	delete(q.pending, jobID)
	q.mu.Unlock()
}
