package dlq

import (
	"context"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/message"
)

// Noop is the DLQ handler used when the feature is switched off. Reads
// return empty results; replays fail with conveyor.ErrDisabled.
type Noop struct{}

func (Noop) FetchMessages(context.Context, FetchOptions) ([]*Message, error) {
	return []*Message{}, nil
}

func (Noop) Stats(context.Context) (*Stats, error) {
	return Summarize(nil, time.Time{}), nil
}

func (Noop) ReplayMessage(context.Context, *Message) error { return conveyor.ErrDisabled }

func (Noop) ReplayMessages(_ context.Context, msgs []*Message) ReplayResult {
	res := ReplayResult{Failed: len(msgs)}
	for range msgs {
		res.Errors = append(res.Errors, conveyor.ErrDisabled)
	}
	return res
}

func (Noop) ReplayByID(context.Context, ...string) (ReplayResult, error) {
	return ReplayResult{}, nil
}

func (Noop) ReplayByTopic(context.Context, message.Topic) (ReplayResult, error) {
	return ReplayResult{}, nil
}

func (Noop) ReplayByTimeWindow(context.Context, time.Time, time.Time) (ReplayResult, error) {
	return ReplayResult{}, nil
}

func (Noop) ProcessMessages(context.Context, TriageFunc) (*TriageResult, error) {
	return &TriageResult{}, nil
}

func (n Noop) CheckAlertThresholds(ctx context.Context, th Thresholds) (*Alert, error) {
	stats, _ := n.Stats(ctx) //nolint:errcheck // never fails
	return EvaluateThresholds(stats, th), nil
}
