package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Concurrency limits
// ---------------------------------------------------------------------------

func TestNewManager_Empty(t *testing.T) {
	m := NewManager()
	if !m.Acquire("any-topic") {
		t.Fatal("expected Acquire to succeed for unconfigured topic")
	}
	m.Release("any-topic")
	if err := m.Wait(context.Background(), "any-topic"); err != nil {
		t.Fatalf("Wait on unconfigured topic: %v", err)
	}
}

func TestManager_MaxConcurrency(t *testing.T) {
	m := NewManager(Config{Topic: "execution-queue", MaxConcurrency: 2})

	if !m.Acquire("execution-queue") {
		t.Fatal("first Acquire should succeed")
	}
	if !m.Acquire("execution-queue") {
		t.Fatal("second Acquire should succeed")
	}
	if m.Acquire("execution-queue") {
		t.Fatal("third Acquire should fail (max concurrency 2)")
	}

	m.Release("execution-queue")
	if !m.Acquire("execution-queue") {
		t.Fatal("Acquire should succeed after Release")
	}
	if got := m.ActiveCount("execution-queue"); got != 2 {
		t.Fatalf("expected 2 active, got %d", got)
	}
}

func TestManager_WildcardAppliesPerTopic(t *testing.T) {
	m := NewManager(Config{Topic: AnyTopic, MaxConcurrency: 1})

	if !m.Acquire("results-queue") {
		t.Fatal("first Acquire on results-queue should succeed")
	}
	if m.Acquire("results-queue") {
		t.Fatal("second Acquire on results-queue should fail")
	}
	// Each topic gets its own slot budget.
	if !m.Acquire("notifications-queue") {
		t.Fatal("notifications-queue should not share results-queue slots")
	}
}

func TestManager_ReleaseUnderflow(t *testing.T) {
	m := NewManager(Config{Topic: "q", MaxConcurrency: 5})

	m.Release("q")
	if m.ActiveCount("q") != 0 {
		t.Fatal("active count should not go below 0")
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestManager_RateLimit_Allow(t *testing.T) {
	m := NewManager(Config{Topic: "limited", RateLimit: 1.0, RateBurst: 1})

	if !m.Allow("limited") {
		t.Fatal("first Allow should succeed (within burst)")
	}
	if m.Allow("limited") {
		t.Fatal("second Allow should fail (rate limited)")
	}
}

func TestManager_RateLimit_BurstAllows(t *testing.T) {
	m := NewManager(Config{Topic: "bursty", RateLimit: 10.0, RateBurst: 3})

	for i := range 3 {
		if !m.Allow("bursty") {
			t.Fatalf("Allow %d should succeed (within burst)", i)
		}
	}
}

func TestManager_Wait_HonoursContext(t *testing.T) {
	m := NewManager(Config{Topic: "slow", RateLimit: 0.001, RateBurst: 1})

	if err := m.Wait(context.Background(), "slow"); err != nil {
		t.Fatalf("first Wait should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx, "slow"); err == nil {
		t.Fatal("expected Wait to fail once the bucket is empty and ctx expires")
	}
}

// ---------------------------------------------------------------------------
// Concurrency safety
// ---------------------------------------------------------------------------

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(Config{Topic: "concurrent", MaxConcurrency: 50})

	var acquired atomic.Int64
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("concurrent") {
				acquired.Add(1)
				time.Sleep(time.Millisecond)
				m.Release("concurrent")
			}
		}()
	}
	wg.Wait()

	if acquired.Load() == 0 {
		t.Fatal("expected some Acquires to succeed")
	}
	if m.ActiveCount("concurrent") != 0 {
		t.Fatalf("expected 0 active after all goroutines, got %d", m.ActiveCount("concurrent"))
	}
}
