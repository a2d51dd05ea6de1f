package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/message"
)

// ReplayResult summarises a bulk replay.
type ReplayResult struct {
	Replayed int     `json:"replayed"`
	Failed   int     `json:"failed"`
	Errors   []error `json:"-"`
}

// ReplayMessage republishes the original envelope of m to its original
// topic with a zero retry count and a fresh timestamp. The ID is kept and
// the dead letter is left in place.
func (h *Handler) ReplayMessage(ctx context.Context, m *Message) error {
	topic := m.OriginalTopic
	if !topic.Valid() || topic.IsDLQ() {
		return fmt.Errorf("%w: cannot replay to %q", conveyor.ErrUnknownTopic, topic)
	}

	env := m.OriginalMessage.Requeue(0, h.now())
	env.Topic = topic

	if res := h.publisher.Publish(ctx, env); !res.Success {
		return fmt.Errorf("conveyor/dlq: replay %s: %w", env.ID, res.Err)
	}

	h.logger.Info("dead letter replayed",
		slog.String("message_id", env.ID),
		slog.String("topic", topic.String()),
	)
	return nil
}

// ReplayMessages replays each message independently.
func (h *Handler) ReplayMessages(ctx context.Context, msgs []*Message) ReplayResult {
	var res ReplayResult
	for _, m := range msgs {
		if err := h.ReplayMessage(ctx, m); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Replayed++
	}
	return res
}

// ReplayByID replays dead letters whose DLQ envelope ID or original
// message ID is listed.
func (h *Handler) ReplayByID(ctx context.Context, ids ...string) (ReplayResult, error) {
	want := make(map[string]bool, len(ids))
	for _, s := range ids {
		want[s] = true
	}
	return h.replayMatching(ctx, FetchOptions{Limit: Unlimited}, func(m *Message) bool {
		return want[m.ID] || want[m.OriginalMessage.ID]
	})
}

// ReplayByTopic replays every dead letter that originated on topic.
func (h *Handler) ReplayByTopic(ctx context.Context, topic message.Topic) (ReplayResult, error) {
	return h.replayMatching(ctx, FetchOptions{Topic: topic, Limit: Unlimited}, func(*Message) bool { return true })
}

// ReplayByTimeWindow replays dead letters that failed in [since, until].
// A zero bound is open.
func (h *Handler) ReplayByTimeWindow(ctx context.Context, since, until time.Time) (ReplayResult, error) {
	return h.replayMatching(ctx, FetchOptions{Limit: Unlimited}, func(m *Message) bool {
		failed := m.FailedTime()
		if !since.IsZero() && failed.Before(since) {
			return false
		}
		if !until.IsZero() && failed.After(until) {
			return false
		}
		return true
	})
}

func (h *Handler) replayMatching(ctx context.Context, opts FetchOptions, match func(*Message) bool) (ReplayResult, error) {
	msgs, err := h.FetchMessages(ctx, opts)
	if err != nil {
		return ReplayResult{}, err
	}

	selected := msgs[:0]
	for _, m := range msgs {
		if match(m) {
			selected = append(selected, m)
		}
	}
	return h.ReplayMessages(ctx, selected), nil
}
