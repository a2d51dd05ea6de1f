package job

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc processes one fetched job. A nil error completes the job;
// any other error fails it.
type HandlerFunc func(ctx context.Context, j *Job) error

// Handle adapts a typed handler into a HandlerFunc. The job data is
// JSON-decoded into T before fn runs.
func Handle[T any](fn func(ctx context.Context, payload T) error) HandlerFunc {
	return func(ctx context.Context, j *Job) error {
		var payload T
		if err := j.Decode(&payload); err != nil {
			return err
		}
		return fn(ctx, payload)
	}
}

// Decode unmarshals the job data into v.
func (j *Job) Decode(v any) error {
	if len(j.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(j.Data, v); err != nil {
		return fmt.Errorf("unmarshal data for job %s: %w", j.ID, err)
	}
	return nil
}
