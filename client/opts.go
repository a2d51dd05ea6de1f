package client

import (
	"fmt"
	"net/url"
	"time"
)

type opt struct {
	url.Values
	idempotencyKey string
}

// Opt is an option to set on a request.
type Opt func(*opt) error

func applyOpts(opts ...Opt) (*opt, error) {
	o := &opt{Values: make(url.Values)}
	for _, fn := range opts {
		if err := fn(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithLimit caps the number of dead letters returned.
func WithLimit(limit int) Opt {
	return func(o *opt) error {
		if limit < 0 {
			return fmt.Errorf("limit must be non-negative, got %d", limit)
		}
		if limit > 0 {
			o.Set("limit", fmt.Sprint(limit))
		}
		return nil
	}
}

// WithTopic filters dead letters by their original topic.
func WithTopic(topic string) Opt {
	return func(o *opt) error {
		if topic != "" {
			o.Set("topic", topic)
		}
		return nil
	}
}

// WithMaxMessages sets the message-count alert threshold.
func WithMaxMessages(n int) Opt {
	return func(o *opt) error {
		if n > 0 {
			o.Set("maxMessages", fmt.Sprint(n))
		}
		return nil
	}
}

// WithMaxAge sets the oldest-message alert threshold.
func WithMaxAge(d time.Duration) Opt {
	return func(o *opt) error {
		if d > 0 {
			o.Set("maxAge", d.String())
		}
		return nil
	}
}

// WithIdempotencyKey sets the idempotency key of a produced message.
func WithIdempotencyKey(key string) Opt {
	return func(o *opt) error {
		o.idempotencyKey = key
		return nil
	}
}
