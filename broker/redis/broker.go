// Package redis implements broker.Broker on Redis Streams. Each topic is
// a stream; consumer groups map onto Redis consumer groups and records
// are acknowledged as soon as they are read, matching the commit-on-read
// semantics of the REST broker.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	b := redis.New(client)
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conveyor/broker"
)

var _ broker.Broker = (*Broker)(nil)

const keyPrefix = "conveyor:topic:"

// valueField is the stream entry field holding the payload.
const valueField = "value"

// streamKey returns the stream key for a topic: conveyor:topic:{name}
func streamKey(topic string) string { return keyPrefix + topic }

// Option configures the Broker.
type Option func(*Broker)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithMaxLen caps each stream at approximately n entries.
func WithMaxLen(n int64) Option {
	return func(b *Broker) { b.maxLen = n }
}

// Broker is a Redis Streams backed broker. The caller owns the Redis
// client lifecycle.
type Broker struct {
	client goredis.Cmdable
	logger *slog.Logger
	maxLen int64
}

// New creates a Redis Streams broker.
func New(client goredis.Cmdable, opts ...Option) *Broker {
	b := &Broker{client: client, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Ping verifies the Redis connection is alive.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Produce appends payload to the topic's stream.
func (b *Broker) Produce(ctx context.Context, topic string, payload []byte) (broker.Offset, error) {
	args := &goredis.XAddArgs{
		Stream: streamKey(topic),
		Values: map[string]any{valueField: string(payload)},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}

	entryID, err := b.client.XAdd(ctx, args).Result()
	if err != nil {
		return broker.Offset{}, fmt.Errorf("conveyor/redis: produce %s: %w", topic, err)
	}
	return broker.Offset{Topic: topic, Offset: entryOffset(entryID)}, nil
}

// Consume reads the next entries for the group and acknowledges them.
func (b *Broker) Consume(ctx context.Context, req broker.ConsumeRequest) ([]broker.Record, error) {
	start := "0"
	if req.OffsetReset == broker.OffsetLatest {
		start = "$"
	}

	streams := make([]string, 0, 2*len(req.Topics))
	for _, topic := range req.Topics {
		if err := b.ensureGroup(ctx, streamKey(topic), req.Group, start); err != nil {
			return nil, err
		}
		streams = append(streams, streamKey(topic))
	}
	for range req.Topics {
		streams = append(streams, ">")
	}

	count := int64(req.Limit)
	res, err := b.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    req.Group,
		Consumer: req.Instance,
		Streams:  streams,
		Count:    count,
		Block:    -1,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("conveyor/redis: consume %v: %w", req.Topics, err)
	}

	var records []broker.Record
	for _, stream := range res {
		topic := strings.TrimPrefix(stream.Stream, keyPrefix)
		ids := make([]string, 0, len(stream.Messages))
		for _, msg := range stream.Messages {
			ids = append(ids, msg.ID)
			value, _ := msg.Values[valueField].(string) //nolint:errcheck // missing field yields an empty value
			records = append(records, broker.Record{
				Topic:  topic,
				Offset: entryOffset(msg.ID),
				Key:    msg.ID,
				Value:  value,
			})
		}
		if len(ids) > 0 {
			b.logger.Debug("redis broker read entries",
				slog.String("topic", topic),
				slog.Int("count", len(ids)),
			)
			if ackErr := b.client.XAck(ctx, stream.Stream, req.Group, ids...).Err(); ackErr != nil {
				return records, fmt.Errorf("conveyor/redis: ack %s: %w", topic, ackErr)
			}
		}
	}
	return records, nil
}

func (b *Broker) ensureGroup(ctx context.Context, stream, group, start string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, group, start).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("conveyor/redis: create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// entryOffset extracts the millisecond part of a stream entry ID.
func entryOffset(entryID string) int64 {
	ms, _, _ := strings.Cut(entryID, "-")
	n, _ := strconv.ParseInt(ms, 10, 64) //nolint:errcheck // malformed IDs map to offset 0
	return n
}
