package observability_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/ext"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/observability"
)

func newTestExtension() (*observability.MetricsExtension, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return observability.NewMetricsExtensionWithMeter(mp.Meter("test")), reader
}

// counts collects every Int64 sum keyed by instrument name.
func counts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out[m.Name] += dp.Value
			}
		}
	}
	return out
}

func newTestEnvelope() *message.Envelope {
	env, _ := message.New(message.TopicExecution, map[string]int{"n": 1}, time.Now())
	return env
}

func newTestJob() *job.Job {
	return &job.Job{ID: id.NewJobID(), Name: "execution", State: job.StateActive}
}

func TestMetricsExtension_Name(t *testing.T) {
	e, _ := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_MessageProduced(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnMessageProduced(context.Background(), newTestEnvelope(), broker.Offset{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counts(t, reader)["conveyor.message.produced"]; got != 1 {
		t.Errorf("conveyor.message.produced: want 1, got %d", got)
	}
}

func TestMetricsExtension_DeadLettered(t *testing.T) {
	e, reader := newTestExtension()
	dl := message.NewDeadLetter(newTestEnvelope(), "boom", time.Now())
	if err := e.OnMessageDeadLettered(context.Background(), dl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counts(t, reader)["conveyor.message.dead_lettered"]; got != 1 {
		t.Errorf("conveyor.message.dead_lettered: want 1, got %d", got)
	}
}

func TestMetricsExtension_JobCompleted(t *testing.T) {
	e, reader := newTestExtension()
	if err := e.OnJobCompleted(context.Background(), newTestJob(), 100*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := counts(t, reader)["conveyor.job.completed"]; got != 1 {
		t.Errorf("conveyor.job.completed: want 1, got %d", got)
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e, reader := newTestExtension()

	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	env := newTestEnvelope()
	j := newTestJob()

	reg.EmitMessageProduced(ctx, env, broker.Offset{})
	reg.EmitProduceFailed(ctx, env, 5, errors.New("down"))
	reg.EmitMessageProcessed(ctx, env, time.Millisecond)
	reg.EmitMessageRetrying(ctx, env, 1, errors.New("boom"))
	reg.EmitMessageDeadLettered(ctx, message.NewDeadLetter(env, "boom", time.Now()))
	reg.EmitJobCreated(ctx, j)
	reg.EmitJobActivated(ctx, j)
	reg.EmitJobCompleted(ctx, j, time.Second)
	reg.EmitJobRetrying(ctx, j, time.Now())
	reg.EmitJobFailed(ctx, j, "boom")
	reg.EmitJobCancelled(ctx, j)

	got := counts(t, reader)
	for _, name := range []string{
		"conveyor.message.produced",
		"conveyor.message.produce_failed",
		"conveyor.message.processed",
		"conveyor.message.retried",
		"conveyor.message.dead_lettered",
		"conveyor.job.created",
		"conveyor.job.activated",
		"conveyor.job.completed",
		"conveyor.job.retried",
		"conveyor.job.failed",
		"conveyor.job.cancelled",
	} {
		if got[name] != 1 {
			t.Errorf("%s: want 1, got %d", name, got[name])
		}
	}
}
