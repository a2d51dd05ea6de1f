package dlq

import (
	"context"
	"fmt"
	"time"
)

// Thresholds trip an alert when exceeded. Zero disables a threshold.
type Thresholds struct {
	MaxMessages int           `json:"maxMessages,omitempty"`
	MaxAge      time.Duration `json:"maxAge,omitempty"`
}

// Alert is the outcome of a threshold check.
type Alert struct {
	Alert   bool     `json:"alert"`
	Reasons []string `json:"reasons"`
	Stats   *Stats   `json:"stats,omitempty"`
}

// EvaluateThresholds compares stats against th. It is pure.
func EvaluateThresholds(stats *Stats, th Thresholds) *Alert {
	a := &Alert{Reasons: []string{}, Stats: stats}
	if stats == nil {
		return a
	}

	if th.MaxMessages > 0 && stats.TotalMessages > th.MaxMessages {
		a.Reasons = append(a.Reasons, fmt.Sprintf(
			"DLQ holds %d messages, above the limit of %d", stats.TotalMessages, th.MaxMessages))
	}
	if th.MaxAge > 0 && stats.TotalMessages > 0 && stats.OldestMessageAge > th.MaxAge {
		a.Reasons = append(a.Reasons, fmt.Sprintf(
			"oldest DLQ message is %s old, above the limit of %s",
			stats.OldestMessageAge.Truncate(time.Second), th.MaxAge))
	}
	a.Alert = len(a.Reasons) > 0
	return a
}

// CheckAlertThresholds takes a Stats snapshot and evaluates th over it.
func (h *Handler) CheckAlertThresholds(ctx context.Context, th Thresholds) (*Alert, error) {
	stats, err := h.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return EvaluateThresholds(stats, th), nil
}
