// Package broker defines the contract Conveyor needs from a
// log-structured broker: append a payload to a topic, and poll a batch of
// payloads for a consumer group. Offsets are committed by the broker on
// read, so a record handed to one fetch is never handed to the same group
// again.
//
// Three implementations ship with Conveyor:
//   - rest:   the REST broker service (production)
//   - redis:  Redis Streams, one stream per topic
//   - memory: an in-process log for tests and local development
package broker

import "context"

// Offset reset policies for a consumer group without a committed offset.
const (
	OffsetEarliest = "earliest"
	OffsetLatest   = "latest"
)

// Offset locates a produced record.
type Offset struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
}

// Record is a raw message returned by Consume.
type Record struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
	Key       string `json:"key,omitempty"`
	Value     string `json:"value"`
}

// ConsumeRequest selects what a Consume call reads.
type ConsumeRequest struct {
	Group       string
	Instance    string
	Topics      []string
	OffsetReset string
	// Limit caps the number of records returned. Zero means the broker
	// default.
	Limit int
}

// Broker is the black-box broker collaborator.
type Broker interface {
	// Produce appends payload to topic.
	Produce(ctx context.Context, topic string, payload []byte) (Offset, error)

	// Consume returns the next records for the request's group.
	Consume(ctx context.Context, req ConsumeRequest) ([]Record, error)
}
