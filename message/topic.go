package message

import (
	"fmt"

	"github.com/xraph/conveyor"
)

// Topic names a broker topic. The set is closed: adding a topic means
// adding both its forward entry and its DLQ mapping below.
type Topic string

const (
	TopicExecution     Topic = "execution-queue"
	TopicResults       Topic = "results-queue"
	TopicNotifications Topic = "notifications-queue"
	TopicExecutionDLQ  Topic = "execution-dead-letter-queue"
)

// dlqTopics maps every forward topic to its dead-letter topic.
var dlqTopics = map[Topic]Topic{
	TopicExecution:     TopicExecutionDLQ,
	TopicResults:       TopicExecutionDLQ,
	TopicNotifications: TopicExecutionDLQ,
}

// queueNames maps job queue names onto topics.
var queueNames = map[string]Topic{
	"execution":     TopicExecution,
	"results":       TopicResults,
	"notifications": TopicNotifications,
}

// Topics returns every known topic, forward topics first.
func Topics() []Topic {
	return []Topic{TopicExecution, TopicResults, TopicNotifications, TopicExecutionDLQ}
}

// String implements fmt.Stringer.
func (t Topic) String() string { return string(t) }

// Valid reports whether t belongs to the topic set.
func (t Topic) Valid() bool {
	switch t {
	case TopicExecution, TopicResults, TopicNotifications, TopicExecutionDLQ:
		return true
	}
	return false
}

// IsDLQ reports whether t is a dead-letter topic.
func (t Topic) IsDLQ() bool {
	return t == TopicExecutionDLQ
}

// DLQ returns the dead-letter topic for t. Dead-letter topics have none.
func (t Topic) DLQ() (Topic, bool) {
	d, ok := dlqTopics[t]
	return d, ok
}

// ParseTopic validates a topic name.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", conveyor.ErrUnknownTopic, s)
	}
	return t, nil
}

// TopicForQueue resolves a job queue name ("execution") or a full topic
// name ("execution-queue") to a forward topic.
func TopicForQueue(name string) (Topic, error) {
	if t, ok := queueNames[name]; ok {
		return t, nil
	}
	if t := Topic(name); t.Valid() && !t.IsDLQ() {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", conveyor.ErrUnknownQueue, name)
}
