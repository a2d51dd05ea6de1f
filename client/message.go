package client

import (
	"context"

	goclient "github.com/mutablelogic/go-client"
)

// ProduceResponse describes an accepted message.
type ProduceResponse struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Offset    int64  `json:"offset"`
	Attempts  int    `json:"attempts"`
}

// Produce publishes data to topic (POST /topics/{topic}/messages).
func (c *Client) Produce(ctx context.Context, topic string, data any, opts ...Opt) (*ProduceResponse, error) {
	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}

	req, err := goclient.NewJSONRequest(struct {
		Data           any    `json:"data"`
		IdempotencyKey string `json:"idempotencyKey,omitempty"`
	}{
		Data:           data,
		IdempotencyKey: opt.idempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	var response ProduceResponse
	if err := c.DoWithContext(ctx, req, &response, goclient.OptPath("topics", topic, "messages")); err != nil {
		return nil, err
	}
	return &response, nil
}
