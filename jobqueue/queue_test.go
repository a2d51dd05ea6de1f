package jobqueue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/broker/memory"
	"github.com/xraph/conveyor/consumer"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
	"github.com/xraph/conveyor/jobqueue"
	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/producer"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	broker   *memory.Broker
	producer *producer.Producer
	consumer *consumer.Consumer
	queue    *jobqueue.Queue
	clock    *clock
}

func newFixture(t *testing.T, opts ...jobqueue.Option) *fixture {
	t.Helper()
	f := &fixture{broker: memory.New(), clock: &clock{now: epoch}}
	f.producer = producer.New(f.broker, producer.WithSleep(noSleep), producer.WithClock(f.clock.Now))
	f.consumer = consumer.New(f.broker, f.producer, consumer.WithClock(f.clock.Now))
	base := []jobqueue.Option{
		jobqueue.WithClock(f.clock.Now),
		jobqueue.WithMaintenanceInterval(0),
	}
	f.queue = jobqueue.New(f.producer, f.consumer, append(base, opts...)...)
	if err := f.queue.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = f.queue.Stop(context.Background()) })
	return f
}

func (f *fixture) send(t *testing.T, data any, opts ...job.SendOption) id.JobID {
	t.Helper()
	jobID, err := f.queue.Send(context.Background(), "execution", data, job.NewSendOptions(opts...))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	return jobID
}

func (f *fixture) fetch(t *testing.T, opts jobqueue.FetchOptions) []*job.Job {
	t.Helper()
	jobs, err := f.queue.Fetch(context.Background(), "execution", opts)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	return jobs
}

func (f *fixture) get(t *testing.T, jobID id.JobID) *job.Job {
	t.Helper()
	j, err := f.queue.GetJobByID(context.Background(), "execution", jobID)
	if err != nil {
		t.Fatalf("GetJobByID: %v", err)
	}
	return j
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

func TestStart_NotConfigured(t *testing.T) {
	q := jobqueue.New(producer.New(nil), consumer.Noop{})
	if err := q.Start(context.Background()); !errors.Is(err, conveyor.ErrNotConfigured) {
		t.Fatalf("Start err = %v, want ErrNotConfigured", err)
	}
}

func TestSendAndFetch_BeforeStart(t *testing.T) {
	b := memory.New()
	p := producer.New(b)
	q := jobqueue.New(p, consumer.New(b, p))
	ctx := context.Background()

	jobID, err := q.Send(ctx, "execution", 1, job.SendOptions{})
	if !errors.Is(err, conveyor.ErrQueueNotStarted) || !jobID.IsNil() {
		t.Errorf("Send = %v, %v; want nil id and ErrQueueNotStarted", jobID, err)
	}
	if _, err := q.Fetch(ctx, "execution", jobqueue.FetchOptions{}); !errors.Is(err, conveyor.ErrQueueNotStarted) {
		t.Errorf("Fetch err = %v, want ErrQueueNotStarted", err)
	}
}

// ──────────────────────────────────────────────────
// Send
// ──────────────────────────────────────────────────

func TestSend_PublishesJobEnvelope(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, map[string]int{"n": 1})

	if jobID.Prefix() != id.PrefixJob {
		t.Errorf("prefix = %q, want %q", jobID.Prefix(), id.PrefixJob)
	}

	recs := f.broker.Records(message.TopicExecution.String())
	if len(recs) != 1 {
		t.Fatalf("execution topic has %d records, want 1", len(recs))
	}
	env, err := message.JSONCodec{}.Decode([]byte(recs[0].Value))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.ID != jobID.String() {
		t.Errorf("envelope ID = %s, want job ID %s", env.ID, jobID)
	}

	j := f.get(t, jobID)
	if j.State != job.StateCreated {
		t.Errorf("state = %s, want created", j.State)
	}
	if j.RetryLimit != job.DefaultRetryLimit || j.ExpireIn != job.DefaultExpireIn {
		t.Errorf("defaults: retryLimit=%d expireIn=%s", j.RetryLimit, j.ExpireIn)
	}
	if !j.KeepUntil.Equal(epoch.Add(job.DefaultRetention)) {
		t.Errorf("KeepUntil = %s, want %s", j.KeepUntil, epoch.Add(job.DefaultRetention))
	}
}

func TestSend_UnknownQueue(t *testing.T) {
	f := newFixture(t)
	jobID, err := f.queue.Send(context.Background(), "nope", 1, job.SendOptions{})
	if !errors.Is(err, conveyor.ErrUnknownQueue) || !jobID.IsNil() {
		t.Errorf("Send = %v, %v; want nil id and ErrUnknownQueue", jobID, err)
	}
}

func TestSend_PublishFailureReleasesSingleton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.broker.FailNextProduce(producer.DefaultMaxRetries)

	opts := job.NewSendOptions(job.WithSingletonKey("k"))
	if _, err := f.queue.Send(ctx, "execution", 1, opts); err == nil {
		t.Fatal("expected send to fail while the broker is down")
	}
	if _, err := f.queue.Send(ctx, "execution", 1, opts); err != nil {
		t.Fatalf("singleton key still held after failed send: %v", err)
	}
}

func TestSend_SingletonExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opts := job.NewSendOptions(job.WithSingletonKey("k"))

	first, err := f.queue.Send(ctx, "execution", 1, opts)
	if err != nil || first.IsNil() {
		t.Fatalf("first Send = %v, %v", first, err)
	}

	second, err := f.queue.Send(ctx, "execution", 2, opts)
	if !errors.Is(err, conveyor.ErrSingletonConflict) || !second.IsNil() {
		t.Fatalf("second Send = %v, %v; want nil id and ErrSingletonConflict", second, err)
	}

	if err := f.queue.Cancel(ctx, "execution", first); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	third, err := f.queue.Send(ctx, "execution", 3, opts)
	if err != nil || third.IsNil() {
		t.Fatalf("third Send after cancel = %v, %v", third, err)
	}
}

func TestSend_SingletonReleasedOnComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.send(t, 1, job.WithSingletonKey("k"))

	f.fetch(t, jobqueue.FetchOptions{})
	if err := f.queue.Complete(ctx, "execution", first, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	f.send(t, 2, job.WithSingletonKey("k"))
}

// ──────────────────────────────────────────────────
// Fetch
// ──────────────────────────────────────────────────

func TestFetch_ActivatesJobs(t *testing.T) {
	f := newFixture(t)
	a := f.send(t, "a")
	b := f.send(t, "b")

	jobs := f.fetch(t, jobqueue.FetchOptions{})
	if len(jobs) != 2 || jobs[0].ID != a || jobs[1].ID != b {
		t.Fatalf("fetched %v, want [%s %s] in order", jobs, a, b)
	}
	for _, j := range jobs {
		if j.State != job.StateActive || j.StartedOn == nil || !j.StartedOn.Equal(epoch) {
			t.Errorf("job %s: state=%s startedOn=%v", j.ID, j.State, j.StartedOn)
		}
	}

	if again := f.fetch(t, jobqueue.FetchOptions{}); len(again) != 0 {
		t.Errorf("second fetch returned %d jobs, want 0", len(again))
	}
}

func TestFetch_PriorityOrder(t *testing.T) {
	f := newFixture(t)
	for _, p := range []int{1, 5, 3} {
		f.send(t, p, job.WithPriority(p))
	}

	jobs := f.fetch(t, jobqueue.FetchOptions{Priority: true, BatchSize: 10})
	got := make([]int, 0, len(jobs))
	for _, j := range jobs {
		got = append(got, j.Priority)
	}
	if len(got) != 3 || got[0] != 5 || got[1] != 3 || got[2] != 1 {
		t.Errorf("priorities = %v, want [5 3 1]", got)
	}
}

func TestFetch_PriorityTiesKeepFetchOrder(t *testing.T) {
	f := newFixture(t)
	a := f.send(t, "a", job.WithPriority(2))
	b := f.send(t, "b", job.WithPriority(9))
	c := f.send(t, "c", job.WithPriority(2))

	jobs := f.fetch(t, jobqueue.FetchOptions{Priority: true})
	if len(jobs) != 3 || jobs[0].ID != b || jobs[1].ID != a || jobs[2].ID != c {
		t.Errorf("order = %v, want [%s %s %s]", jobs, b, a, c)
	}
}

func TestFetch_RespectsBatchSize(t *testing.T) {
	f := newFixture(t)
	for i := range 5 {
		f.send(t, i)
	}
	if jobs := f.fetch(t, jobqueue.FetchOptions{BatchSize: 2}); len(jobs) != 2 {
		t.Errorf("fetched %d, want 2", len(jobs))
	}
	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 3 {
		t.Errorf("fetched %d, want 3", len(jobs))
	}
}

func TestFetch_DefersFutureJobs(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, "later", job.WithStartAfter(epoch.Add(60*time.Second)))

	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 0 {
		t.Fatalf("fetched %d jobs before StartAfter, want 0", len(jobs))
	}
	if st := f.get(t, jobID).State; st != job.StateCreated {
		t.Errorf("state = %s, want created", st)
	}

	f.clock.Advance(61 * time.Second)

	jobs := f.fetch(t, jobqueue.FetchOptions{})
	if len(jobs) != 1 || jobs[0].ID != jobID {
		t.Fatalf("fetched %v after StartAfter, want [%s]", jobs, jobID)
	}
}

func TestFetch_DeferralRetriesRepublish(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, "later", job.WithStartAfter(epoch.Add(time.Minute)))

	f.broker.FailNextProduce(1)
	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 0 {
		t.Fatalf("fetched %d jobs before StartAfter, want 0", len(jobs))
	}
	if n := f.queue.Pending(); n != 0 {
		t.Fatalf("pending = %d, want 0", n)
	}

	f.clock.Advance(2 * time.Minute)
	jobs := f.fetch(t, jobqueue.FetchOptions{})
	if len(jobs) != 1 || jobs[0].ID != jobID {
		t.Fatalf("fetched %v after StartAfter, want [%s]", jobs, jobID)
	}
}

func TestMaintain_ResendsLostDeferral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, "later",
		job.WithStartAfter(epoch.Add(time.Minute)),
		job.WithSingletonKey("nightly"),
	)

	f.broker.FailNextProduce(producer.DefaultMaxRetries)
	f.fetch(t, jobqueue.FetchOptions{})
	if n := f.queue.Pending(); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}

	f.clock.Advance(2 * time.Minute)
	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 0 {
		t.Fatalf("fetched %d jobs with no envelope on the topic", len(jobs))
	}

	f.queue.Maintain(ctx)
	if n := f.queue.Pending(); n != 0 {
		t.Fatalf("pending after maintain = %d, want 0", n)
	}
	jobs := f.fetch(t, jobqueue.FetchOptions{})
	if len(jobs) != 1 || jobs[0].ID != jobID {
		t.Fatalf("fetched %v after maintain, want [%s]", jobs, jobID)
	}
}

func TestFetch_DropsCancelledJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, 1)

	if err := f.queue.Cancel(ctx, "execution", jobID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 0 {
		t.Errorf("fetched cancelled job")
	}
	if st := f.get(t, jobID).State; st != job.StateCancelled {
		t.Errorf("state = %s, want cancelled", st)
	}
}

func TestFetch_AdoptsUnknownJobs(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, 1)

	other := jobqueue.New(f.producer, f.consumer,
		jobqueue.WithClock(f.clock.Now),
		jobqueue.WithMaintenanceInterval(0),
		jobqueue.WithGroup("other-process", "b"),
	)
	ctx := context.Background()
	if err := other.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer other.Stop(ctx) //nolint:errcheck // test cleanup

	jobs, err := other.Fetch(ctx, "execution", jobqueue.FetchOptions{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != jobID || jobs[0].State != job.StateActive {
		t.Fatalf("adopted = %v", jobs)
	}
}

func TestFetch_SkipsMalformed(t *testing.T) {
	f := newFixture(t)
	f.broker.Inject(message.TopicExecution.String(), "not json")
	bad, _ := message.New(message.TopicExecution, "not a job", epoch)
	f.producer.PublishOnce(context.Background(), bad)
	f.send(t, 1)

	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 1 {
		t.Errorf("fetched %d, want 1", len(jobs))
	}
}

// ──────────────────────────────────────────────────
// Complete / Fail / Cancel
// ──────────────────────────────────────────────────

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, 1)
	f.fetch(t, jobqueue.FetchOptions{})
	f.clock.Advance(time.Second)

	if err := f.queue.Complete(ctx, "execution", jobID, map[string]string{"ok": "yes"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	j := f.get(t, jobID)
	if j.State != job.StateCompleted || string(j.Output) != `{"ok":"yes"}` {
		t.Errorf("job = %s %s", j.State, j.Output)
	}
	if j.CompletedOn == nil || !j.CompletedOn.Equal(epoch.Add(time.Second)) {
		t.Errorf("CompletedOn = %v", j.CompletedOn)
	}

	if err := f.queue.Complete(ctx, "execution", jobID, nil); !errors.Is(err, conveyor.ErrInvalidState) {
		t.Errorf("second Complete err = %v, want ErrInvalidState", err)
	}
}

func TestComplete_UnknownJob(t *testing.T) {
	f := newFixture(t)
	err := f.queue.Complete(context.Background(), "execution", id.NewJobID(), nil)
	if !errors.Is(err, conveyor.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestFail_ExhaustedEmitsDeadLetter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, map[string]int{"n": 1}, job.WithRetryLimit(1))
	f.fetch(t, jobqueue.FetchOptions{})

	if err := f.queue.Fail(ctx, "execution", jobID, map[string]string{"error": "boom"}); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	j := f.get(t, jobID)
	if j.State != job.StateFailed || j.RetryCount != 1 {
		t.Errorf("job = %s retry=%d, want failed retry=1", j.State, j.RetryCount)
	}

	recs := f.broker.Records(message.TopicExecutionDLQ.String())
	if len(recs) != 1 {
		t.Fatalf("DLQ has %d records, want 1", len(recs))
	}
	outer, err := message.JSONCodec{}.Decode([]byte(recs[0].Value))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	dl, err := message.Unwrap(outer)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if dl.OriginalMessage.ID != jobID.String() || dl.ErrorReason != "boom" || dl.OriginalTopic != message.TopicExecution {
		t.Errorf("dead letter = %+v", dl)
	}
}

func TestFail_RetrySchedulesBackoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, 1,
		job.WithRetryLimit(5),
		job.WithRetryDelay(10*time.Second),
		job.WithRetryBackoff(),
	)

	f.fetch(t, jobqueue.FetchOptions{})
	if err := f.queue.Fail(ctx, "execution", jobID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	j := f.get(t, jobID)
	if j.State != job.StateRetry || !j.StartAfter.Equal(epoch.Add(10*time.Second)) {
		t.Fatalf("after first fail: state=%s startAfter=%s", j.State, j.StartAfter)
	}

	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 0 {
		t.Fatalf("retry fetched before its delay")
	}

	f.clock.Advance(10 * time.Second)
	jobs := f.fetch(t, jobqueue.FetchOptions{})
	if len(jobs) != 1 || jobs[0].RetryCount != 1 {
		t.Fatalf("retry fetch = %v", jobs)
	}

	if err := f.queue.Fail(ctx, "execution", jobID, "boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	j = f.get(t, jobID)
	want := epoch.Add(10*time.Second + 20*time.Second)
	if j.State != job.StateRetry || j.RetryCount != 2 || !j.StartAfter.Equal(want) {
		t.Errorf("after second fail: state=%s retry=%d startAfter=%s, want %s", j.State, j.RetryCount, j.StartAfter, want)
	}
}

func TestMaintain_ResendsLostRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, 1, job.WithRetryLimit(3))
	f.fetch(t, jobqueue.FetchOptions{})

	f.broker.FailNextProduce(producer.DefaultMaxRetries)
	if err := f.queue.Fail(ctx, "execution", jobID, "boom"); err == nil {
		t.Fatal("expected republish error")
	}
	if st := f.get(t, jobID).State; st != job.StateRetry {
		t.Fatalf("state = %s, want retry", st)
	}
	if jobs := f.fetch(t, jobqueue.FetchOptions{}); len(jobs) != 0 {
		t.Fatalf("fetched %d jobs with no envelope on the topic", len(jobs))
	}

	f.queue.Maintain(ctx)
	jobs := f.fetch(t, jobqueue.FetchOptions{})
	if len(jobs) != 1 || jobs[0].ID != jobID || jobs[0].RetryCount != 1 {
		t.Fatalf("fetched %v after maintain, want retry of %s", jobs, jobID)
	}
}

func TestMaintain_ForgetsPendingCancelledJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, "later", job.WithStartAfter(epoch.Add(time.Minute)))

	f.broker.FailNextProduce(producer.DefaultMaxRetries)
	f.fetch(t, jobqueue.FetchOptions{})
	if err := f.queue.Cancel(ctx, "execution", jobID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	before := f.broker.Len(message.TopicExecution.String())
	f.queue.Maintain(ctx)
	if n := f.queue.Pending(); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
	if after := f.broker.Len(message.TopicExecution.String()); after != before {
		t.Errorf("topic grew from %d to %d for a cancelled job", before, after)
	}
}

func TestFail_NotActive(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, 1)
	err := f.queue.Fail(context.Background(), "execution", jobID, "boom")
	if !errors.Is(err, conveyor.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestCancel_Multiple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.send(t, 1)
	b := f.send(t, 2)

	if err := f.queue.Cancel(ctx, "execution", a, b); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := f.queue.Cancel(ctx, "execution", a); !errors.Is(err, conveyor.ErrInvalidState) {
		t.Errorf("cancel of cancelled job err = %v, want ErrInvalidState", err)
	}
}

func TestGetJobByID_WrongQueue(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, 1)
	_, err := f.queue.GetJobByID(context.Background(), "results", jobID)
	if !errors.Is(err, conveyor.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Work
// ──────────────────────────────────────────────────

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWork_CompletesJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := range 3 {
		f.send(t, i)
	}

	workerID, err := f.queue.Work(ctx, "execution", func(_ context.Context, j *job.Job) error {
		j.Output = []byte(`"done"`)
		return nil
	}, jobqueue.WorkOptions{PollingInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Work: %v", err)
	}
	if workerID.Prefix() != id.PrefixWorker {
		t.Errorf("worker prefix = %q", workerID.Prefix())
	}

	waitFor(t, func() bool { return f.queue.Registry().Count()[job.StateCompleted] == 3 })

	if err := f.queue.OffWork(ctx, workerID); err != nil {
		t.Fatalf("OffWork: %v", err)
	}
	if err := f.queue.OffWork(ctx, workerID); !errors.Is(err, conveyor.ErrWorkerNotFound) {
		t.Errorf("second OffWork err = %v, want ErrWorkerNotFound", err)
	}
}

func TestWork_FailsToDeadLetter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, 1, job.WithRetryLimit(1))

	workerID, err := f.queue.Work(ctx, "execution", func(context.Context, *job.Job) error {
		panic("kaboom")
	}, jobqueue.WorkOptions{PollingInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Work: %v", err)
	}
	defer f.queue.OffWork(ctx, workerID) //nolint:errcheck // test cleanup

	waitFor(t, func() bool {
		j, err := f.queue.GetJobByID(ctx, "execution", jobID)
		return err == nil && j.State == job.StateFailed
	})
	if n := f.broker.Len(message.TopicExecutionDLQ.String()); n != 1 {
		t.Errorf("DLQ has %d records, want 1", n)
	}
}

func TestWork_UnknownQueue(t *testing.T) {
	f := newFixture(t)
	_, err := f.queue.Work(context.Background(), "nope", func(context.Context, *job.Job) error { return nil }, jobqueue.WorkOptions{})
	if !errors.Is(err, conveyor.ErrUnknownQueue) {
		t.Errorf("err = %v, want ErrUnknownQueue", err)
	}
}

func TestStop_StopsWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.queue.Work(ctx, "execution", func(context.Context, *job.Job) error { return nil },
		jobqueue.WorkOptions{PollingInterval: time.Hour}); err != nil {
		t.Fatalf("Work: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := f.queue.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := f.queue.Send(ctx, "execution", 1, job.SendOptions{}); !errors.Is(err, conveyor.ErrQueueNotStarted) {
		t.Errorf("Send after Stop err = %v, want ErrQueueNotStarted", err)
	}
}

// ──────────────────────────────────────────────────
// Maintenance
// ──────────────────────────────────────────────────

func TestMaintain_ExpiresActiveJobs(t *testing.T) {
	f := newFixture(t)
	jobID := f.send(t, 1, job.WithExpireInMinutes(5))
	f.fetch(t, jobqueue.FetchOptions{})

	f.clock.Advance(6 * time.Minute)
	expired, _ := f.queue.Maintain(context.Background())
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}
	j := f.get(t, jobID)
	if j.State != job.StateRetry || j.RetryCount != 1 {
		t.Errorf("job = %s retry=%d, want retry/1", j.State, j.RetryCount)
	}
}

func TestMaintain_EvictsTerminalJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jobID := f.send(t, 1, job.WithRetentionDays(1))
	if err := f.queue.Cancel(ctx, "execution", jobID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	f.clock.Advance(48 * time.Hour)
	if _, evicted := f.queue.Maintain(ctx); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if _, err := f.queue.GetJobByID(ctx, "execution", jobID); !errors.Is(err, conveyor.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Noop
// ──────────────────────────────────────────────────

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var n jobqueue.Noop

	jobID, err := n.Send(ctx, "execution", 1, job.SendOptions{})
	if !errors.Is(err, conveyor.ErrDisabled) || !jobID.IsNil() {
		t.Errorf("Send = %v, %v", jobID, err)
	}
	jobs, err := n.Fetch(ctx, "execution", jobqueue.FetchOptions{})
	if err != nil || len(jobs) != 0 {
		t.Errorf("Fetch = %v, %v", jobs, err)
	}
	if _, err := n.Work(ctx, "execution", nil, jobqueue.WorkOptions{}); !errors.Is(err, conveyor.ErrDisabled) {
		t.Errorf("Work err = %v", err)
	}
}
