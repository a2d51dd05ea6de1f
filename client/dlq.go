package client

import (
	"context"
	"time"

	goclient "github.com/mutablelogic/go-client"

	"github.com/xraph/conveyor/dlq"
)

// ReplayResponse reports the outcome of a replay.
type ReplayResponse struct {
	Replayed int      `json:"replayed"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// ListDLQ returns dead letters oldest first (GET /dlq).
func (c *Client) ListDLQ(ctx context.Context, opts ...Opt) ([]*dlq.Message, error) {
	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}

	var response []*dlq.Message
	if err := c.DoWithContext(ctx, goclient.NewRequest(), &response, goclient.OptPath("dlq"), goclient.OptQuery(opt.Values)); err != nil {
		return nil, err
	}
	return response, nil
}

// DLQStats summarises the dead letter queue (GET /dlq/stats).
func (c *Client) DLQStats(ctx context.Context) (*dlq.Stats, error) {
	var response dlq.Stats
	if err := c.DoWithContext(ctx, goclient.NewRequest(), &response, goclient.OptPath("dlq", "stats")); err != nil {
		return nil, err
	}
	return &response, nil
}

// DLQAlerts evaluates th on the server (GET /dlq/alerts).
func (c *Client) DLQAlerts(ctx context.Context, th dlq.Thresholds) (*dlq.Alert, error) {
	opt, err := applyOpts(WithMaxMessages(th.MaxMessages), WithMaxAge(th.MaxAge))
	if err != nil {
		return nil, err
	}

	var response dlq.Alert
	if err := c.DoWithContext(ctx, goclient.NewRequest(), &response, goclient.OptPath("dlq", "alerts"), goclient.OptQuery(opt.Values)); err != nil {
		return nil, err
	}
	return &response, nil
}

// ReplayIDs replays dead letters by envelope id (POST /dlq/replay).
func (c *Client) ReplayIDs(ctx context.Context, ids ...string) (*ReplayResponse, error) {
	req, err := goclient.NewJSONRequest(struct {
		IDs []string `json:"ids"`
	}{IDs: ids})
	if err != nil {
		return nil, err
	}
	return c.replay(ctx, req, "dlq", "replay")
}

// ReplayTopic replays every dead letter from topic (POST /dlq/replay/topic/{topic}).
func (c *Client) ReplayTopic(ctx context.Context, topic string) (*ReplayResponse, error) {
	req, err := goclient.NewJSONRequest(struct{}{})
	if err != nil {
		return nil, err
	}
	return c.replay(ctx, req, "dlq", "replay", "topic", topic)
}

// ReplayWindow replays dead letters that failed inside [since, until]
// (POST /dlq/replay/window). A zero bound is open.
func (c *Client) ReplayWindow(ctx context.Context, since, until time.Time) (*ReplayResponse, error) {
	req, err := goclient.NewJSONRequest(struct {
		Since time.Time `json:"since"`
		Until time.Time `json:"until"`
	}{Since: since, Until: until})
	if err != nil {
		return nil, err
	}
	return c.replay(ctx, req, "dlq", "replay", "window")
}

func (c *Client) replay(ctx context.Context, req goclient.Payload, path ...string) (*ReplayResponse, error) {
	var response ReplayResponse
	if err := c.DoWithContext(ctx, req, &response, goclient.OptPath(path...)); err != nil {
		return nil, err
	}
	return &response, nil
}
