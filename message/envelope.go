package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/conveyor/id"
)

// Envelope is the unit of transport on every topic.
type Envelope struct {
	ID             string          `json:"id" msgpack:"id"`
	Topic          Topic           `json:"topic" msgpack:"topic"`
	Data           json.RawMessage `json:"data" msgpack:"data"`
	Timestamp      int64           `json:"timestamp" msgpack:"timestamp"`
	RetryCount     int             `json:"retryCount,omitempty" msgpack:"retryCount,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty" msgpack:"idempotencyKey,omitempty"`
}

// New wraps data in an envelope with a fresh ID and the given publish time.
func New(topic Topic, data any, now time.Time) (*Envelope, error) {
	raw, err := marshalData(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        id.NewMessageID().String(),
		Topic:     topic,
		Data:      raw,
		Timestamp: now.UnixMilli(),
	}, nil
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope %s: %w", e.ID, err)
	}
	return nil
}

// Time returns the publish timestamp as a time.Time.
func (e *Envelope) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Requeue returns a copy of e carrying retryCount and a fresh timestamp.
// The ID is preserved.
func (e *Envelope) Requeue(retryCount int, now time.Time) *Envelope {
	cp := e.Clone()
	cp.RetryCount = retryCount
	cp.Timestamp = now.UnixMilli()
	return cp
}

// Clone returns a deep copy of e.
func (e *Envelope) Clone() *Envelope {
	cp := *e
	if e.Data != nil {
		cp.Data = append(json.RawMessage(nil), e.Data...)
	}
	return &cp
}

func marshalData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("envelope data is not valid JSON")
		}
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal envelope data: %w", err)
		}
		return raw, nil
	}
}
