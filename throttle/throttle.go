package throttle

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// AnyTopic is the Config.Topic wildcard.
const AnyTopic = "*"

// Config defines per-topic rate limiting and concurrency.
type Config struct {
	// Topic is the topic name, or AnyTopic.
	Topic string

	// MaxConcurrency limits how many batch cycles may run on this topic
	// at once in this process. Zero means no limit.
	MaxConcurrency int

	// RateLimit is the maximum sustained publishes per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// topicState tracks runtime state for a single topic.
type topicState struct {
	config  Config
	limiter *rate.Limiter
	active  int
}

// Manager controls per-topic rate limiting and concurrency.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	topics   map[string]*topicState
	fallback *Config
}

// NewManager creates a Manager with the given topic configurations.
func NewManager(configs ...Config) *Manager {
	m := &Manager{topics: make(map[string]*topicState, len(configs))}
	for _, cfg := range configs {
		if cfg.Topic == AnyTopic {
			c := cfg
			m.fallback = &c
			continue
		}
		m.topics[cfg.Topic] = newTopicState(cfg)
	}
	return m
}

func newTopicState(cfg Config) *topicState {
	ts := &topicState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return ts
}

// state returns the topic state, materializing the wildcard config on
// first use. Callers hold m.mu.
func (m *Manager) state(topic string) *topicState {
	if ts, ok := m.topics[topic]; ok {
		return ts
	}
	if m.fallback == nil {
		return nil
	}
	cfg := *m.fallback
	cfg.Topic = topic
	ts := newTopicState(cfg)
	m.topics[topic] = ts
	return ts
}

// Wait blocks until the topic's rate limiter grants a token or ctx is
// done. Unlimited topics return immediately.
func (m *Manager) Wait(ctx context.Context, topic string) error {
	m.mu.Lock()
	ts := m.state(topic)
	var limiter *rate.Limiter
	if ts != nil {
		limiter = ts.limiter
	}
	m.mu.Unlock()

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// Allow reports whether a publish may happen now without waiting.
func (m *Manager) Allow(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.state(topic)
	if ts == nil || ts.limiter == nil {
		return true
	}
	return ts.limiter.Allow()
}

// Acquire takes a concurrency slot for topic. It returns false when the
// topic is at its cap. The caller MUST call Release after a successful
// Acquire.
func (m *Manager) Acquire(topic string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.state(topic)
	if ts == nil {
		return true
	}
	if ts.config.MaxConcurrency > 0 && ts.active >= ts.config.MaxConcurrency {
		return false
	}
	ts.active++
	return true
}

// Release returns a concurrency slot for topic.
func (m *Manager) Release(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ts := m.topics[topic]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// ActiveCount returns the number of held slots for topic.
func (m *Manager) ActiveCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ts := m.topics[topic]; ts != nil {
		return ts.active
	}
	return 0
}
