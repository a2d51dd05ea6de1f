// Package rest implements broker.Broker against the REST broker service.
//
//	POST {endpoint}/produce                      {"topic":…,"value":…}
//	POST {endpoint}/consume/{group}/{instance}   {"topics":[…],"autoOffsetReset":…}
//
// Requests authenticate with HTTP basic auth.
//
// Usage:
//
//	b, err := rest.New(rest.Config{URL: url, Username: user, Password: pass})
//	if errors.Is(err, conveyor.ErrNotConfigured) { … }
package rest

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	client "github.com/mutablelogic/go-client"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/broker"
)

var _ broker.Broker = (*Broker)(nil)

// Config holds the REST endpoint and its credentials.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
	// Trace enables request tracing to TraceWriter, or stderr when
	// TraceWriter is nil.
	Trace       bool
	TraceWriter io.Writer
}

// Broker talks to the REST broker service.
type Broker struct {
	*client.Client
}

// New creates a REST broker client. It returns conveyor.ErrNotConfigured
// when the endpoint or the credentials are missing.
func New(cfg Config, opts ...client.ClientOpt) (*Broker, error) {
	if cfg.URL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, conveyor.ErrNotConfigured
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	token := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
	opts = append([]client.ClientOpt{
		client.OptEndpoint(cfg.URL),
		client.OptTimeout(cfg.Timeout),
		client.OptReqToken(client.Token{Scheme: "Basic", Value: token}),
	}, opts...)
	if cfg.Trace {
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		opts = append(opts, client.OptTrace(w, true))
	}

	c, err := client.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("conveyor/rest: new client: %w", err)
	}
	return &Broker{Client: c}, nil
}

type produceRequest struct {
	Topic string `json:"topic"`
	Value string `json:"value"`
}

type consumeRequest struct {
	Topics          []string `json:"topics"`
	AutoOffsetReset string   `json:"autoOffsetReset,omitempty"`
	Limit           int      `json:"limit,omitempty"`
}

// Produce appends payload to topic (POST /produce).
func (b *Broker) Produce(ctx context.Context, topic string, payload []byte) (broker.Offset, error) {
	req, err := client.NewJSONRequest(produceRequest{Topic: topic, Value: string(payload)})
	if err != nil {
		return broker.Offset{}, err
	}

	var response broker.Offset
	if err := b.DoWithContext(ctx, req, &response, client.OptPath("produce")); err != nil {
		return broker.Offset{}, fmt.Errorf("conveyor/rest: produce %s: %w", topic, err)
	}
	if response.Topic == "" {
		response.Topic = topic
	}
	return response, nil
}

// Consume polls the next records for a group (POST /consume/{group}/{instance}).
func (b *Broker) Consume(ctx context.Context, cr broker.ConsumeRequest) ([]broker.Record, error) {
	req, err := client.NewJSONRequest(consumeRequest{
		Topics:          cr.Topics,
		AutoOffsetReset: cr.OffsetReset,
		Limit:           cr.Limit,
	})
	if err != nil {
		return nil, err
	}

	var response []broker.Record
	if err := b.DoWithContext(ctx, req, &response, client.OptPath("consume", cr.Group, cr.Instance)); err != nil {
		return nil, fmt.Errorf("conveyor/rest: consume %v: %w", cr.Topics, err)
	}
	return response, nil
}
