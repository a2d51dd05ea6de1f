package dlq

import (
	"context"
	"log/slog"
)

// Action is a triage decision for one dead letter.
type Action string

const (
	// ActionReplay republishes the dead letter.
	ActionReplay Action = "replay"
	// ActionSkip leaves the dead letter for a later pass.
	ActionSkip Action = "skip"
	// ActionDelete marks the dead letter as handled. The broker cannot
	// delete records, so nothing is removed; it is only counted.
	ActionDelete Action = "delete"
)

// TriageFunc decides what to do with one dead letter.
type TriageFunc func(ctx context.Context, m *Message) Action

// TriageResult counts triage decisions.
type TriageResult struct {
	Replayed int `json:"replayed"`
	Skipped  int `json:"skipped"`
	Deleted  int `json:"deleted"`
	Failed   int `json:"failed"`
}

// ProcessMessages runs triage over a snapshot of the DLQ. A failed replay
// is counted and never stops the pass. Unknown actions count as skips.
func (h *Handler) ProcessMessages(ctx context.Context, triage TriageFunc) (*TriageResult, error) {
	msgs, err := h.FetchMessages(ctx, FetchOptions{Limit: Unlimited})
	if err != nil {
		return nil, err
	}

	res := &TriageResult{}
	for _, m := range msgs {
		switch triage(ctx, m) {
		case ActionReplay:
			if err := h.ReplayMessage(ctx, m); err != nil {
				h.logger.Error("triage replay failed",
					slog.String("message_id", m.OriginalMessage.ID),
					slog.String("error", err.Error()),
				)
				res.Failed++
				continue
			}
			res.Replayed++
		case ActionDelete:
			res.Deleted++
		default:
			res.Skipped++
		}
	}
	return res, nil
}
