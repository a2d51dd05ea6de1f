package dlq

import (
	"context"
	"encoding/json"
	"time"
)

// maxReasonLength bounds ByErrorReason keys.
const maxReasonLength = 100

// Stats is a point-in-time summary of the DLQ. Ages are measured from
// the moment Stats was computed.
type Stats struct {
	TotalMessages    int            `json:"totalMessages"`
	OldestMessageAge time.Duration  `json:"-"`
	NewestMessageAge time.Duration  `json:"-"`
	ByTopic          map[string]int `json:"byTopic"`
	ByErrorReason    map[string]int `json:"byErrorReason"`
}

// MarshalJSON renders ages in milliseconds.
func (s Stats) MarshalJSON() ([]byte, error) {
	type alias Stats
	return json.Marshal(struct {
		alias
		OldestMessageAgeMs int64 `json:"oldestMessageAge"`
		NewestMessageAgeMs int64 `json:"newestMessageAge"`
	}{
		alias:              alias(s),
		OldestMessageAgeMs: s.OldestMessageAge.Milliseconds(),
		NewestMessageAgeMs: s.NewestMessageAge.Milliseconds(),
	})
}

// UnmarshalJSON reads ages in milliseconds.
func (s *Stats) UnmarshalJSON(data []byte) error {
	type alias Stats
	var v struct {
		*alias
		OldestMessageAgeMs int64 `json:"oldestMessageAge"`
		NewestMessageAgeMs int64 `json:"newestMessageAge"`
	}
	v.alias = (*alias)(s)
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.OldestMessageAge = time.Duration(v.OldestMessageAgeMs) * time.Millisecond
	s.NewestMessageAge = time.Duration(v.NewestMessageAgeMs) * time.Millisecond
	return nil
}

// Stats reads the DLQ and summarises it. It has no side effects.
func (h *Handler) Stats(ctx context.Context) (*Stats, error) {
	msgs, err := h.FetchMessages(ctx, FetchOptions{Limit: Unlimited})
	if err != nil {
		return nil, err
	}
	return Summarize(msgs, h.now()), nil
}

// Summarize computes Stats for msgs as of now.
func Summarize(msgs []*Message, now time.Time) *Stats {
	s := &Stats{
		TotalMessages: len(msgs),
		ByTopic:       make(map[string]int),
		ByErrorReason: make(map[string]int),
	}
	if len(msgs) == 0 {
		return s
	}

	oldest, newest := msgs[0].FailedAt, msgs[0].FailedAt
	for _, m := range msgs {
		s.ByTopic[m.OriginalTopic.String()]++
		s.ByErrorReason[truncate(m.ErrorReason, maxReasonLength)]++
		oldest = min(oldest, m.FailedAt)
		newest = max(newest, m.FailedAt)
	}
	s.OldestMessageAge = now.Sub(time.UnixMilli(oldest))
	s.NewestMessageAge = now.Sub(time.UnixMilli(newest))
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
