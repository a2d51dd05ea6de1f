package consumer

import (
	"context"
	"sync"
	"sync/atomic"
)

// Poller controls a polling loop started by StartPolling.
type Poller struct {
	stopped  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	// sleepCtx is cancelled by Stop so an idle loop wakes early. Handlers
	// never see it.
	sleepCtx    context.Context
	cancelSleep context.CancelFunc

	cycles    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dlqSent   atomic.Int64
}

func newPoller(ctx context.Context) *Poller {
	sleepCtx, cancel := context.WithCancel(ctx)
	return &Poller{
		done:        make(chan struct{}),
		sleepCtx:    sleepCtx,
		cancelSleep: cancel,
	}
}

// stoppedPoller returns a Poller whose loop never ran.
func stoppedPoller() *Poller {
	p := newPoller(context.Background())
	p.Stop()
	close(p.done)
	return p
}

// Stop asks the loop to exit at the top of its next cycle. A handler
// already running is not interrupted. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		p.cancelSleep()
	})
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Stopped reports whether Stop was called.
func (p *Poller) Stopped() bool { return p.stopped.Load() }

// Totals returns cumulative counts across every completed cycle.
func (p *Poller) Totals() (cycles int64, totals BatchResult) {
	return p.cycles.Load(), BatchResult{
		Processed: int(p.processed.Load()),
		Failed:    int(p.failed.Load()),
		DLQSent:   int(p.dlqSent.Load()),
	}
}

func (p *Poller) record(res BatchResult) {
	p.cycles.Add(1)
	p.processed.Add(int64(res.Processed))
	p.failed.Add(int64(res.Failed))
	p.dlqSent.Add(int64(res.DLQSent))
}
