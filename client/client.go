// Package client is a typed Go client for the conveyor admin API.
//
// Usage:
//
//	c, err := client.New("http://localhost:8080/v1", client.WithUser("ops"))
//
//	res, err := c.Produce(ctx, "execution-queue", payload)
//	stats, err := c.DLQStats(ctx)
//	replayed, err := c.ReplayTopic(ctx, "execution-queue")
//
//	jobID, err := c.SendJob(ctx, "execution", payload, job.SendOptions{Priority: 3})
//	j, err := c.GetJob(ctx, "execution", jobID)
package client

import (
	"io"
	"time"

	goclient "github.com/mutablelogic/go-client"
)

// UserHeader carries the user id the server passes to its feature flag.
const UserHeader = "X-User-ID"

// Client talks to a remote conveyor admin API.
type Client struct {
	*goclient.Client
}

// Option configures a Client.
type Option func(*config)

type config struct {
	user    string
	timeout time.Duration
	trace   io.Writer
	verbose bool
}

// WithUser sets the user id sent on every request.
func WithUser(userID string) Option {
	return func(c *config) { c.user = userID }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithTrace writes request and response traces to w.
func WithTrace(w io.Writer, verbose bool) Option {
	return func(c *config) {
		c.trace = w
		c.verbose = verbose
	}
}

// New creates a client for the API rooted at endpoint, for example
// "http://localhost:8080/v1".
func New(endpoint string, opts ...Option) (*Client, error) {
	cfg := config{timeout: 30 * time.Second}
	for _, o := range opts {
		o(&cfg)
	}

	copts := []goclient.ClientOpt{
		goclient.OptEndpoint(endpoint),
		goclient.OptTimeout(cfg.timeout),
	}
	if cfg.user != "" {
		copts = append(copts, goclient.OptHeader(UserHeader, cfg.user))
	}
	if cfg.trace != nil {
		copts = append(copts, goclient.OptTrace(cfg.trace, cfg.verbose))
	}

	c, err := goclient.New(copts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}
