package producer

import (
	"context"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/message"
)

// Noop is the disabled producer. Every call fails with
// conveyor.ErrDisabled and touches nothing.
type Noop struct{}

func (Noop) Produce(_ context.Context, topic message.Topic, _ any, _ ...ProduceOption) Result {
	return Result{Topic: topic, Err: conveyor.ErrDisabled}
}

func (Noop) ProduceOnce(_ context.Context, topic message.Topic, _ any, _ ...ProduceOption) Result {
	return Result{Topic: topic, Err: conveyor.ErrDisabled}
}

func (Noop) ProduceBatch(_ context.Context, reqs []Request) []Result {
	out := make([]Result, len(reqs))
	for i, r := range reqs {
		out[i] = Result{Topic: r.Topic, Err: conveyor.ErrDisabled}
	}
	return out
}

func (Noop) Publish(_ context.Context, env *message.Envelope) Result {
	return Result{Topic: env.Topic, ID: env.ID, Err: conveyor.ErrDisabled}
}

func (Noop) PublishOnce(_ context.Context, env *message.Envelope) Result {
	return Result{Topic: env.Topic, ID: env.ID, Err: conveyor.ErrDisabled}
}
