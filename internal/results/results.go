// Package results fetches a completed job's generated content and turns it
// into plain text downloads.
package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/five82/recast/internal/api"
)

// ErrNotCompleted is returned when results are requested for a job that has
// not completed.
var ErrNotCompleted = errors.New("results are only available for completed jobs")

// Results maps platforms to their generated output for one job.
type Results struct {
	JobID   string
	Outputs map[api.Platform]api.Output
}

// Found reports whether any output exists. An empty result is a valid state,
// distinct from a failed fetch.
func (r Results) Found() bool {
	return len(r.Outputs) > 0
}

// Fetch retrieves the outputs of job. A 404 or an empty mapping returns an
// empty Results and a nil error.
func Fetch(ctx context.Context, fetcher api.OutputFetcher, job api.Job) (Results, error) {
	if job.Status != api.StatusCompleted {
		return Results{JobID: job.ID}, ErrNotCompleted
	}
	return FetchByID(ctx, fetcher, job.ID)
}

// FetchByID retrieves outputs without checking the job's status. Callers that
// only hold an id, like the export command, use it directly.
func FetchByID(ctx context.Context, fetcher api.OutputFetcher, jobID string) (Results, error) {
	out, err := fetcher.JobOutputs(ctx, jobID)
	if errors.Is(err, api.ErrNotFound) {
		return Results{JobID: jobID}, nil
	}
	if err != nil {
		return Results{JobID: jobID}, fmt.Errorf("fetch results for job %s: %w", jobID, err)
	}
	r := Results{JobID: jobID, Outputs: out.Outputs}
	if r.Outputs == nil {
		r.Outputs = map[api.Platform]api.Output{}
	}
	return r, nil
}
