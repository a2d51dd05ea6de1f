package jobqueue

import (
	"log/slog"
	"time"

	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/producer"
)

// Defaults for a Queue built without options.
const (
	DefaultGroup               = "conveyor-jobs"
	DefaultBatchSize           = 10
	DefaultPollingInterval     = 2 * time.Second
	DefaultMaintenanceInterval = time.Minute
)

// FetchOptions controls a single Fetch.
type FetchOptions struct {
	// BatchSize caps the number of candidates read. Zero means
	// DefaultBatchSize.
	BatchSize int `json:"batchSize,omitempty"`

	// Priority sorts the returned jobs by descending priority. Ties keep
	// fetch order.
	Priority bool `json:"priority,omitempty"`
}

// WorkOptions controls a Work loop.
type WorkOptions struct {
	// PollingInterval is how long an idle worker sleeps. Zero means
	// DefaultPollingInterval.
	PollingInterval time.Duration

	// BatchSize and Priority are passed to each Fetch.
	BatchSize int
	Priority  bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithGroup sets the consumer group and instance used to read job
// topics.
func WithGroup(group, instance string) Option {
	return func(q *Queue) {
		q.group = group
		q.instance = instance
	}
}

// WithMaintenanceInterval sets how often active jobs are checked for
// expiry and terminal jobs are evicted. Zero disables maintenance.
func WithMaintenanceInterval(d time.Duration) Option {
	return func(q *Queue) { q.maintenanceInterval = d }
}

// WithExtensions sets the extension registry for job lifecycle hooks.
func WithExtensions(r *ext.Registry) Option {
	return func(q *Queue) { q.extensions = r }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithSleep overrides how idle workers wait.
func WithSleep(fn producer.SleepFunc) Option {
	return func(q *Queue) { q.sleep = fn }
}
