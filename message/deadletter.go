package message

import (
	"fmt"
	"time"
)

// DeadLetter wraps an envelope whose handler failed past the retry
// ceiling.
type DeadLetter struct {
	OriginalMessage Envelope `json:"originalMessage" msgpack:"originalMessage"`
	ErrorReason     string   `json:"errorReason" msgpack:"errorReason"`
	FailedAt        int64    `json:"failedAt" msgpack:"failedAt"`
	OriginalTopic   Topic    `json:"originalTopic" msgpack:"originalTopic"`
}

// NewDeadLetter builds a dead letter for env failing with reason.
func NewDeadLetter(env *Envelope, reason string, now time.Time) *DeadLetter {
	return &DeadLetter{
		OriginalMessage: *env.Clone(),
		ErrorReason:     reason,
		FailedAt:        now.UnixMilli(),
		OriginalTopic:   env.Topic,
	}
}

// Wrap builds the outer envelope carrying d on its DLQ topic.
func (d *DeadLetter) Wrap(now time.Time) (*Envelope, error) {
	dlq, ok := d.OriginalTopic.DLQ()
	if !ok {
		return nil, fmt.Errorf("topic %q has no dead-letter topic", d.OriginalTopic)
	}
	return New(dlq, d, now)
}

// FailedTime returns FailedAt as a time.Time.
func (d *DeadLetter) FailedTime() time.Time {
	return time.UnixMilli(d.FailedAt)
}

// Unwrap decodes a dead letter from an envelope read off a DLQ topic.
func Unwrap(env *Envelope) (*DeadLetter, error) {
	var d DeadLetter
	if err := env.Decode(&d); err != nil {
		return nil, err
	}
	if d.OriginalTopic == "" {
		d.OriginalTopic = d.OriginalMessage.Topic
	}
	return &d, nil
}
