package jobqueue

import (
	"context"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/id"
	"github.com/xraph/conveyor/job"
)

// Noop is the job queue used when the feature is switched off. Send and
// Work return id.Nil with conveyor.ErrDisabled; Fetch returns no jobs.
type Noop struct{}

func (Noop) Start(context.Context) error { return nil }

func (Noop) Stop(context.Context) error { return nil }

func (Noop) Send(context.Context, string, any, job.SendOptions) (id.JobID, error) {
	return id.Nil, conveyor.ErrDisabled
}

func (Noop) Fetch(context.Context, string, FetchOptions) ([]*job.Job, error) {
	return []*job.Job{}, nil
}

func (Noop) Work(context.Context, string, job.HandlerFunc, WorkOptions) (id.WorkerID, error) {
	return id.Nil, conveyor.ErrDisabled
}

func (Noop) OffWork(context.Context, id.WorkerID) error { return conveyor.ErrDisabled }

func (Noop) Complete(context.Context, string, id.JobID, any) error { return conveyor.ErrDisabled }

func (Noop) Fail(context.Context, string, id.JobID, any) error { return conveyor.ErrDisabled }

func (Noop) Cancel(context.Context, string, ...id.JobID) error { return conveyor.ErrDisabled }

func (Noop) GetJobByID(context.Context, string, id.JobID) (*job.Job, error) {
	return nil, conveyor.ErrDisabled
}
