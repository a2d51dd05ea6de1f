package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conveyor/consumer"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/producer"
)

// DefaultFetchLimit bounds a fetch when FetchOptions.Limit is zero.
const DefaultFetchLimit = 1000

// Unlimited as FetchOptions.Limit reads the whole DLQ topic.
const Unlimited = -1

// pageSize is the per-request batch used while paging the DLQ topic.
const pageSize = 100

// Inspector is the DLQ surface shared by the real handler and its no-op
// stand-in.
type Inspector interface {
	FetchMessages(ctx context.Context, opts FetchOptions) ([]*Message, error)
	Stats(ctx context.Context) (*Stats, error)
	ReplayMessage(ctx context.Context, m *Message) error
	ReplayMessages(ctx context.Context, msgs []*Message) ReplayResult
	ReplayByID(ctx context.Context, ids ...string) (ReplayResult, error)
	ReplayByTopic(ctx context.Context, topic message.Topic) (ReplayResult, error)
	ReplayByTimeWindow(ctx context.Context, since, until time.Time) (ReplayResult, error)
	ProcessMessages(ctx context.Context, triage TriageFunc) (*TriageResult, error)
	CheckAlertThresholds(ctx context.Context, th Thresholds) (*Alert, error)
}

var (
	_ Inspector = (*Handler)(nil)
	_ Inspector = Noop{}
)

// Message is one dead letter read from the DLQ topic.
type Message struct {
	// ID is the ID of the outer DLQ envelope.
	ID string `json:"id"`

	// Timestamp is when the dead letter was published (epoch ms).
	Timestamp int64 `json:"timestamp"`

	message.DeadLetter
}

// FetchOptions filters a DLQ read.
type FetchOptions struct {
	// Limit caps the number of messages returned. Zero means
	// DefaultFetchLimit; a negative limit reads everything.
	Limit int

	// Topic keeps only dead letters whose original topic matches.
	Topic message.Topic
}

// Option configures a Handler.
type Option func(*Handler)

// WithTopic sets the DLQ topic to read. Defaults to the execution DLQ.
func WithTopic(t message.Topic) Option {
	return func(h *Handler) { h.topic = t }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithClock overrides the time source for ages and replay timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// Handler reads and replays dead letters.
type Handler struct {
	consumer  consumer.Processor
	publisher producer.Publisher
	topic     message.Topic
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a DLQ handler reading through c and replaying through p.
func New(c consumer.Processor, p producer.Publisher, opts ...Option) *Handler {
	h := &Handler{
		consumer:  c,
		publisher: p,
		topic:     message.TopicExecutionDLQ,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FetchMessages returns a snapshot of the DLQ topic, oldest first.
func (h *Handler) FetchMessages(ctx context.Context, opts FetchOptions) ([]*Message, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultFetchLimit
	}

	// A throwaway group starting at the earliest offset sees every
	// retained record and leaves real groups untouched.
	group := id.NewGroupID().String()

	var out []*Message
	for limit < 0 || len(out) < limit {
		envs, err := h.consumer.Consume(ctx, h.topic,
			consumer.Group(group, "dlq-reader"),
			consumer.FromEarliest(),
			consumer.Limit(pageSize),
		)
		if err != nil {
			return nil, fmt.Errorf("conveyor/dlq: fetch: %w", err)
		}
		if len(envs) == 0 {
			break
		}

		for _, env := range envs {
			dl, err := message.Unwrap(env)
			if err != nil {
				h.logger.Warn("skipping malformed dead letter",
					slog.String("message_id", env.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if opts.Topic != "" && dl.OriginalTopic != opts.Topic {
				continue
			}
			out = append(out, &Message{ID: env.ID, Timestamp: env.Timestamp, DeadLetter: *dl})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
