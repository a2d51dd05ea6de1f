package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conveyor/broker"
	redisbroker "github.com/xraph/conveyor/broker/redis"
)

func newTestBroker(t *testing.T) *redisbroker.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisbroker.New(client)
}

func TestBroker_ProduceConsume(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	for _, v := range []string{"a", "b", "c"} {
		if _, err := b.Produce(ctx, "execution-queue", []byte(v)); err != nil {
			t.Fatalf("Produce %s: %v", v, err)
		}
	}

	req := broker.ConsumeRequest{
		Group:       "workers",
		Instance:    "w1",
		Topics:      []string{"execution-queue"},
		OffsetReset: broker.OffsetEarliest,
		Limit:       2,
	}

	first, err := b.Consume(ctx, req)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first batch = %d records, want 2", len(first))
	}
	if first[0].Value != "a" || first[1].Value != "b" {
		t.Errorf("first batch values = %q, %q", first[0].Value, first[1].Value)
	}
	if first[0].Topic != "execution-queue" {
		t.Errorf("topic = %q", first[0].Topic)
	}

	second, err := b.Consume(ctx, req)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(second) != 1 || second[0].Value != "c" {
		t.Fatalf("second batch = %+v, want [c]", second)
	}

	empty, err := b.Consume(ctx, req)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty batch, got %d", len(empty))
	}
}

func TestBroker_NewGroupReadsFromEarliest(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	if _, err := b.Produce(ctx, "results-queue", []byte("x")); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	for _, group := range []string{"g1", "g2"} {
		recs, err := b.Consume(ctx, broker.ConsumeRequest{
			Group:       group,
			Instance:    "i",
			Topics:      []string{"results-queue"},
			OffsetReset: broker.OffsetEarliest,
		})
		if err != nil {
			t.Fatalf("Consume %s: %v", group, err)
		}
		if len(recs) != 1 {
			t.Errorf("group %s read %d records, want 1", group, len(recs))
		}
	}
}
