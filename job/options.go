package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/conveyor/id"
)

// Defaults applied by New when SendOptions leaves a field unset.
const (
	DefaultRetryLimit = 2
	DefaultExpireIn   = 15 * time.Minute
	DefaultRetention  = 14 * 24 * time.Hour
)

// SendOptions configures a job at send time. ExpireIn is taken from
// the largest unit supplied: hours, then minutes, then seconds.
// StartAfter wins over StartAfterSeconds; neither means now.
type SendOptions struct {
	Priority          int        `json:"priority,omitempty"`
	RetryLimit        *int       `json:"retryLimit,omitempty"`
	RetryDelaySeconds int        `json:"retryDelay,omitempty"`
	RetryBackoff      bool       `json:"retryBackoff,omitempty"`
	ExpireInSeconds   int        `json:"expireInSeconds,omitempty"`
	ExpireInMinutes   int        `json:"expireInMinutes,omitempty"`
	ExpireInHours     int        `json:"expireInHours,omitempty"`
	StartAfterSeconds int        `json:"startAfterSeconds,omitempty"`
	StartAfter        *time.Time `json:"startAfter,omitempty"`
	SingletonKey      string     `json:"singletonKey,omitempty"`
	RetentionDays     int        `json:"retentionDays,omitempty"`
}

// SendOption is a functional option for SendOptions.
type SendOption func(*SendOptions)

// NewSendOptions applies opts to zero SendOptions.
func NewSendOptions(opts ...SendOption) SendOptions {
	var o SendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPriority sets the job priority. Higher values are fetched first
// when priority ordering is requested.
func WithPriority(p int) SendOption {
	return func(o *SendOptions) { o.Priority = p }
}

// WithRetryLimit sets how many failures the job tolerates.
func WithRetryLimit(n int) SendOption {
	return func(o *SendOptions) { o.RetryLimit = &n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) SendOption {
	return func(o *SendOptions) { o.RetryDelaySeconds = int(d / time.Second) }
}

// WithRetryBackoff doubles the retry delay on every failure.
func WithRetryBackoff() SendOption {
	return func(o *SendOptions) { o.RetryBackoff = true }
}

// WithExpireInSeconds sets the active-time budget in seconds.
func WithExpireInSeconds(n int) SendOption {
	return func(o *SendOptions) { o.ExpireInSeconds = n }
}

// WithExpireInMinutes sets the active-time budget in minutes.
func WithExpireInMinutes(n int) SendOption {
	return func(o *SendOptions) { o.ExpireInMinutes = n }
}

// WithExpireInHours sets the active-time budget in hours.
func WithExpireInHours(n int) SendOption {
	return func(o *SendOptions) { o.ExpireInHours = n }
}

// WithStartAfter defers the job until t.
func WithStartAfter(t time.Time) SendOption {
	return func(o *SendOptions) { o.StartAfter = &t }
}

// WithStartAfterSeconds defers the job by n seconds from send time.
func WithStartAfterSeconds(n int) SendOption {
	return func(o *SendOptions) { o.StartAfterSeconds = n }
}

// WithSingletonKey allows at most one non-terminal job per key.
func WithSingletonKey(key string) SendOption {
	return func(o *SendOptions) { o.SingletonKey = key }
}

// WithRetentionDays sets how long a finished job is kept.
func WithRetentionDays(n int) SendOption {
	return func(o *SendOptions) { o.RetentionDays = n }
}

// ExpireIn resolves the active-time budget.
func (o SendOptions) ExpireIn() time.Duration {
	switch {
	case o.ExpireInHours > 0:
		return time.Duration(o.ExpireInHours) * time.Hour
	case o.ExpireInMinutes > 0:
		return time.Duration(o.ExpireInMinutes) * time.Minute
	case o.ExpireInSeconds > 0:
		return time.Duration(o.ExpireInSeconds) * time.Second
	default:
		return DefaultExpireIn
	}
}

// StartTime resolves the not-before time relative to now.
func (o SendOptions) StartTime(now time.Time) time.Time {
	switch {
	case o.StartAfter != nil && !o.StartAfter.IsZero():
		return *o.StartAfter
	case o.StartAfterSeconds > 0:
		return now.Add(time.Duration(o.StartAfterSeconds) * time.Second)
	default:
		return now
	}
}

// New builds a created job named name carrying data.
func New(name string, data any, opts SendOptions, now time.Time) (*Job, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal job data: %w", err)
	}

	retryLimit := DefaultRetryLimit
	if opts.RetryLimit != nil {
		retryLimit = *opts.RetryLimit
	}
	retention := DefaultRetention
	if opts.RetentionDays > 0 {
		retention = time.Duration(opts.RetentionDays) * 24 * time.Hour
	}
	startAfter := opts.StartTime(now)

	return &Job{
		ID:           id.NewJobID(),
		Name:         name,
		Data:         raw,
		State:        StateCreated,
		Priority:     opts.Priority,
		RetryLimit:   retryLimit,
		RetryDelay:   time.Duration(opts.RetryDelaySeconds) * time.Second,
		RetryBackoff: opts.RetryBackoff,
		ExpireIn:     opts.ExpireIn(),
		StartAfter:   startAfter,
		CreatedOn:    now,
		SingletonKey: opts.SingletonKey,
		KeepUntil:    startAfter.Add(retention),
	}, nil
}
