package consumer

import (
	"context"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/message"
)

// Noop is the disabled consumer. It fetches nothing and its pollers are
// stopped before they start.
type Noop struct{}

func (Noop) Consume(context.Context, message.Topic, ...CallOption) ([]*message.Envelope, error) {
	return nil, conveyor.ErrDisabled
}

func (Noop) ProcessBatch(context.Context, message.Topic, HandlerFunc, ...CallOption) BatchResult {
	return BatchResult{}
}

func (Noop) ProcessParallelBatch(context.Context, message.Topic, HandlerFunc, ...CallOption) BatchResult {
	return BatchResult{}
}

func (Noop) StartPolling(context.Context, message.Topic, HandlerFunc, ...CallOption) *Poller {
	return stoppedPoller()
}
