package conveyor

import "time"

// Config holds the shared configuration for producers, consumers, the
// DLQ handler and the job queue adapter.
type Config struct {
	// BrokerURL is the REST endpoint of the broker.
	BrokerURL string `json:"broker_url"`

	// BrokerUsername and BrokerPassword are the broker credentials.
	BrokerUsername string `json:"broker_username"`
	BrokerPassword string `json:"broker_password"`

	// Group is the consumer group used when polling topics.
	Group string `default:"conveyor" json:"group"`

	// Instance identifies this consumer inside Group.
	Instance string `default:"instance-1" json:"instance"`

	// OffsetReset is applied when Group has no committed offset yet.
	OffsetReset string `default:"earliest" json:"offset_reset"`

	// BatchSize is the maximum number of envelopes per fetch.
	BatchSize int `default:"10" json:"batch_size"`

	// MaxRetries is the producer attempt budget and the consumer retry
	// ceiling before a message is dead-lettered.
	MaxRetries int `default:"5" json:"max_retries"`

	// RetryDelays is the capped backoff table used by the producer.
	RetryDelays []time.Duration `json:"retry_delays"`

	// PollInterval is how long an idle polling loop sleeps.
	PollInterval time.Duration `default:"1s" json:"poll_interval"`

	// Concurrency is the window size for parallel batch processing.
	Concurrency int `default:"5" json:"concurrency"`

	// FeatureFlag gates the real queue against its no-op stand-in.
	FeatureFlag string `default:"conveyor-queue" json:"feature_flag"`
}

// DefaultRetryDelays is the canonical producer backoff table. Attempts
// beyond its length reuse the last value.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
}

// DefaultConfig returns a Config with sensible defaults and no broker
// credentials.
func DefaultConfig() Config {
	return Config{
		Group:        "conveyor",
		Instance:     "instance-1",
		OffsetReset:  "earliest",
		BatchSize:    10,
		MaxRetries:   5,
		RetryDelays:  DefaultRetryDelays(),
		PollInterval: 1 * time.Second,
		Concurrency:  5,
		FeatureFlag:  "conveyor-queue",
	}
}

// Configured reports whether broker credentials are present.
func (c Config) Configured() bool {
	return c.BrokerURL != "" && c.BrokerUsername != "" && c.BrokerPassword != ""
}
