// Package memory implements broker.Broker as an in-process append log
// with per-group read offsets. Safe for concurrent use. Intended for unit
// testing and development.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/xraph/conveyor/broker"
)

var _ broker.Broker = (*Broker)(nil)

// ErrInjected is returned by Produce while failures are injected.
var ErrInjected = errors.New("memory broker: injected failure")

// Broker is an in-memory log-structured broker.
type Broker struct {
	mu sync.Mutex

	logs    map[string][]broker.Record
	offsets map[string]map[string]int // group -> topic -> next index

	// failProduce makes the next n Produce calls fail.
	failProduce int
	produced    []broker.Record
}

// New returns an empty broker.
func New() *Broker {
	return &Broker{
		logs:    make(map[string][]broker.Record),
		offsets: make(map[string]map[string]int),
	}
}

// Produce appends payload to topic.
func (b *Broker) Produce(ctx context.Context, topic string, payload []byte) (broker.Offset, error) {
	if err := ctx.Err(); err != nil {
		return broker.Offset{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failProduce > 0 {
		b.failProduce--
		return broker.Offset{}, ErrInjected
	}

	rec := broker.Record{
		Topic:  topic,
		Offset: int64(len(b.logs[topic])),
		Value:  string(payload),
	}
	b.logs[topic] = append(b.logs[topic], rec)
	b.produced = append(b.produced, rec)
	return broker.Offset{Topic: topic, Offset: rec.Offset}, nil
}

// Consume returns up to req.Limit unread records across req.Topics and
// advances the group's offsets past them.
func (b *Broker) Consume(ctx context.Context, req broker.ConsumeRequest) ([]broker.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	group, ok := b.offsets[req.Group]
	if !ok {
		group = make(map[string]int)
		b.offsets[req.Group] = group
	}

	var out []broker.Record
	for _, topic := range req.Topics {
		next, seen := group[topic]
		if !seen && req.OffsetReset == broker.OffsetLatest {
			next = len(b.logs[topic])
		}
		log := b.logs[topic]
		for next < len(log) {
			if req.Limit > 0 && len(out) >= req.Limit {
				break
			}
			out = append(out, log[next])
			next++
		}
		group[topic] = next
	}
	return out, nil
}

// FailNextProduce makes the next n Produce calls return ErrInjected.
func (b *Broker) FailNextProduce(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failProduce = n
}

// Inject appends a raw value to topic without going through Produce.
// Useful for feeding malformed payloads.
func (b *Broker) Inject(topic, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[topic] = append(b.logs[topic], broker.Record{
		Topic:  topic,
		Offset: int64(len(b.logs[topic])),
		Value:  value,
	})
}

// Records returns a copy of every record ever appended to topic.
func (b *Broker) Records(topic string) []broker.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broker.Record(nil), b.logs[topic]...)
}

// Produced returns every record accepted by Produce, in order.
func (b *Broker) Produced() []broker.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broker.Record(nil), b.produced...)
}

// Len returns the number of records on topic.
func (b *Broker) Len(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.logs[topic])
}
