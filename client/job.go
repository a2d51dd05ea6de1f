package client

import (
	"context"
	"net/http"

	goclient "github.com/mutablelogic/go-client"

	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
)

// SendJob creates a job on the queue named name (POST /jobs/{name}).
func (c *Client) SendJob(ctx context.Context, name string, data any, opts job.SendOptions) (id.JobID, error) {
	req, err := goclient.NewJSONRequest(struct {
		Data    any             `json:"data"`
		Options job.SendOptions `json:"options"`
	}{Data: data, Options: opts})
	if err != nil {
		return id.Nil, err
	}

	var response struct {
		ID string `json:"id"`
	}
	if err := c.DoWithContext(ctx, req, &response, goclient.OptPath("jobs", name)); err != nil {
		return id.Nil, err
	}
	return id.ParseJobID(response.ID)
}

// GetJob returns a job snapshot (GET /jobs/{name}/{id}).
func (c *Client) GetJob(ctx context.Context, name string, jobID id.JobID) (*job.Job, error) {
	var response job.Job
	if err := c.DoWithContext(ctx, goclient.NewRequest(), &response, goclient.OptPath("jobs", name, jobID.String())); err != nil {
		return nil, err
	}
	return &response, nil
}

// CancelJob cancels a job (POST /jobs/{name}/{id}/cancel).
func (c *Client) CancelJob(ctx context.Context, name string, jobID id.JobID) error {
	req := goclient.NewRequestEx(http.MethodPost, "")
	return c.DoWithContext(ctx, req, nil, goclient.OptPath("jobs", name, jobID.String(), "cancel"))
}
