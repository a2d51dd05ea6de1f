package message_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/message"
)

func TestTopic_DLQMapping(t *testing.T) {
	for _, topic := range []message.Topic{
		message.TopicExecution,
		message.TopicResults,
		message.TopicNotifications,
	} {
		dlq, ok := topic.DLQ()
		if !ok {
			t.Fatalf("%s: expected a DLQ mapping", topic)
		}
		if dlq != message.TopicExecutionDLQ {
			t.Errorf("%s: DLQ = %s, want %s", topic, dlq, message.TopicExecutionDLQ)
		}
	}

	if _, ok := message.TopicExecutionDLQ.DLQ(); ok {
		t.Error("DLQ topic must not map to another DLQ")
	}
}

func TestParseTopic_Unknown(t *testing.T) {
	_, err := message.ParseTopic("billing-queue")
	if !errors.Is(err, conveyor.ErrUnknownTopic) {
		t.Fatalf("err = %v, want ErrUnknownTopic", err)
	}
}

func TestTopicForQueue(t *testing.T) {
	tests := []struct {
		name string
		want message.Topic
		err  error
	}{
		{"execution", message.TopicExecution, nil},
		{"notifications", message.TopicNotifications, nil},
		{"results-queue", message.TopicResults, nil},
		{"execution-dead-letter-queue", "", conveyor.ErrUnknownQueue},
		{"nope", "", conveyor.ErrUnknownQueue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := message.TopicForQueue(tt.name)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("topic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvelope_RequeueKeepsID(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	env, err := message.New(message.TopicExecution, map[string]int{"n": 1}, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.IdempotencyKey = "x"

	later := now.Add(time.Minute)
	re := env.Requeue(1, later)

	if re.ID != env.ID {
		t.Errorf("ID changed on requeue: %q != %q", re.ID, env.ID)
	}
	if re.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", re.RetryCount)
	}
	if re.Timestamp != later.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", re.Timestamp, later.UnixMilli())
	}
	if re.IdempotencyKey != "x" {
		t.Errorf("IdempotencyKey = %q, want x", re.IdempotencyKey)
	}
	if env.RetryCount != 0 {
		t.Error("Requeue must not mutate the original envelope")
	}
}

func TestEnvelope_WireFormat(t *testing.T) {
	env := &message.Envelope{
		ID:        "msg_1",
		Topic:     message.TopicResults,
		Data:      json.RawMessage(`{"ok":true}`),
		Timestamp: 42,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"id":"msg_1","topic":"results-queue","data":{"ok":true},"timestamp":42}`
	if string(raw) != want {
		t.Errorf("wire = %s, want %s", raw, want)
	}
}

func TestCodec_RejectsMalformed(t *testing.T) {
	codecs := []message.Codec{message.GetCodec("json"), message.GetCodec("msgpack")}
	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			if _, err := c.Decode([]byte("not an envelope")); err == nil {
				t.Error("expected decode error")
			}
		})
	}

	if _, err := (message.JSONCodec{}).Decode([]byte(`{"topic":"results-queue"}`)); err == nil {
		t.Error("expected error for envelope without id")
	}
}

func TestCodec_Msgpack(t *testing.T) {
	env, err := message.New(message.TopicExecution, map[string]string{"k": "v"}, time.Now())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.RetryCount = 3

	c := message.MsgpackCodec{}
	raw, err := c.Encode(env)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != env.ID || got.RetryCount != 3 || string(got.Data) != string(env.Data) {
		t.Errorf("decoded %+v, want %+v", got, env)
	}
}

func TestDeadLetter_WrapUnwrap(t *testing.T) {
	now := time.Now()
	env, err := message.New(message.TopicNotifications, "hello", now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.RetryCount = 5

	outer, err := message.NewDeadLetter(env, "smtp timeout", now).Wrap(now)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if outer.Topic != message.TopicExecutionDLQ {
		t.Errorf("outer topic = %s, want %s", outer.Topic, message.TopicExecutionDLQ)
	}

	dl, err := message.Unwrap(outer)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if dl.OriginalMessage.ID != env.ID {
		t.Errorf("original id = %q, want %q", dl.OriginalMessage.ID, env.ID)
	}
	if dl.OriginalMessage.RetryCount != 5 {
		t.Errorf("original retryCount = %d, want 5", dl.OriginalMessage.RetryCount)
	}
	if dl.OriginalTopic != message.TopicNotifications {
		t.Errorf("original topic = %s", dl.OriginalTopic)
	}
	if dl.ErrorReason != "smtp timeout" {
		t.Errorf("reason = %q", dl.ErrorReason)
	}
}
