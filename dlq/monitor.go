package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// DefaultSchedule is how often a Monitor checks thresholds.
const DefaultSchedule = "@every 1m"

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// AlertFunc receives tripped alerts.
type AlertFunc func(ctx context.Context, a *Alert)

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithSchedule sets the cron expression for threshold checks.
func WithSchedule(expr string) MonitorOption {
	return func(m *Monitor) { m.expr = expr }
}

// WithMonitorLogger sets a custom logger.
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// WithMonitorClock overrides the time source used to compute the next
// firing.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// Monitor checks DLQ thresholds on a cron schedule.
type Monitor struct {
	inspector  Inspector
	thresholds Thresholds
	onAlert    AlertFunc
	logger     *slog.Logger
	now        func() time.Time

	expr     string
	schedule cronlib.Schedule

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewMonitor creates a Monitor. onAlert may be nil, in which case
// tripped alerts are only logged.
func NewMonitor(ins Inspector, th Thresholds, onAlert AlertFunc, opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{
		inspector:  ins,
		thresholds: th,
		onAlert:    onAlert,
		logger:     slog.Default(),
		now:        time.Now,
		expr:       DefaultSchedule,
	}
	for _, opt := range opts {
		opt(m)
	}

	sched, err := ParseSchedule(m.expr)
	if err != nil {
		return nil, fmt.Errorf("conveyor/dlq: invalid schedule %q: %w", m.expr, err)
	}
	m.schedule = sched
	return m, nil
}

// Check runs one threshold check and fires onAlert if it trips.
func (m *Monitor) Check(ctx context.Context) (*Alert, error) {
	a, err := m.inspector.CheckAlertThresholds(ctx, m.thresholds)
	if err != nil {
		return nil, err
	}
	if a.Alert {
		m.logger.Warn("dlq alert",
			slog.String("reasons", strings.Join(a.Reasons, "; ")),
		)
		if m.onAlert != nil {
			m.onAlert(ctx, a)
		}
	}
	return a, nil
}

// Start launches the check loop. It runs until Stop or ctx is done.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.loop(ctx, m.stopCh)
	m.logger.Info("dlq monitor started", slog.String("schedule", m.expr))
	return nil
}

// Stop signals the loop to exit and waits for it.
func (m *Monitor) Stop(_ context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("dlq monitor stopped")
	return nil
}

func (m *Monitor) loop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	for {
		now := m.now()
		timer := time.NewTimer(m.schedule.Next(now).Sub(now))

		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := m.Check(ctx); err != nil {
				m.logger.Error("dlq threshold check failed", slog.String("error", err.Error()))
			}
		}
	}
}
