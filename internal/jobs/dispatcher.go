package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
)

var (
	ErrNotCancellable     = errors.New("only pending or processing jobs can be cancelled")
	ErrNotDeletable       = errors.New("only finished jobs can be deleted")
	ErrActionInFlight     = errors.New("an action for this job is already in progress")
	ErrConfirmationClosed = errors.New("confirmation is no longer open")
)

// Refresher re-fetches the job list after a successful mutation.
type Refresher interface {
	Sync(ctx context.Context) error
}

// Dispatcher issues cancel, delete and regenerate requests. At most one
// action per job (or output) runs at a time.
type Dispatcher struct {
	mutator   api.JobMutator
	refresher Refresher
	log       zerolog.Logger

	mu   sync.Mutex
	busy map[string]string
}

// NewDispatcher builds a Dispatcher. refresher may be nil when no list view
// needs to be kept in sync.
func NewDispatcher(mutator api.JobMutator, refresher Refresher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mutator:   mutator,
		refresher: refresher,
		log:       logger.With().Str("component", "dispatcher").Logger(),
		busy:      make(map[string]string),
	}
}

// SetRefresher swaps the list kept in sync after mutations. Views call this
// when they mount their poller.
func (d *Dispatcher) SetRefresher(r Refresher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresher = r
}

// Busy reports whether an action is running for id.
func (d *Dispatcher) Busy(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.busy[id]
	return ok
}

// CanCancel reports whether the cancel action should be offered for job.
func (d *Dispatcher) CanCancel(job api.Job) bool {
	return job.Status.IsActive() && !d.Busy(job.ID)
}

// CanDelete reports whether the delete action should be offered for job.
func (d *Dispatcher) CanDelete(job api.Job) bool {
	return job.Status.IsTerminal() && !d.Busy(job.ID)
}

func (d *Dispatcher) acquire(id, action string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.busy[id]; ok {
		return false
	}
	d.busy[id] = action
	return true
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.busy, id)
}

func (d *Dispatcher) sync(ctx context.Context) {
	d.mu.Lock()
	r := d.refresher
	d.mu.Unlock()
	if r == nil {
		return
	}
	if err := r.Sync(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, ErrStopped) {
		d.log.Warn().Err(err).Msg("refresh after action failed")
	}
}

// Cancel asks the server to cancel job. It refuses jobs that are not pending
// or processing and triggers a silent list refresh on success.
func (d *Dispatcher) Cancel(ctx context.Context, job api.Job) error {
	if !job.Status.IsActive() {
		return ErrNotCancellable
	}
	if !d.acquire(job.ID, "cancel") {
		return ErrActionInFlight
	}
	defer d.release(job.ID)

	if err := d.mutator.CancelJob(ctx, job.ID); err != nil {
		d.log.Warn().Err(err).Str("job_id", job.ID).Msg("cancel failed")
		return fmt.Errorf("cancel job %s: %w", job.ID, err)
	}
	d.log.Info().Str("job_id", job.ID).Msg("job cancelled")
	d.sync(ctx)
	return nil
}

// Regenerate queues a new generation for one output. The server answers with
// the job that will produce it, which the refreshed list then shows.
func (d *Dispatcher) Regenerate(ctx context.Context, outputID string, preferences map[string]any) (api.RegenerateResponse, error) {
	if !d.acquire(outputID, "regenerate") {
		return api.RegenerateResponse{}, ErrActionInFlight
	}
	defer d.release(outputID)

	resp, err := d.mutator.RegenerateOutput(ctx, outputID, preferences)
	if err != nil {
		d.log.Warn().Err(err).Str("output_id", outputID).Msg("regenerate failed")
		return api.RegenerateResponse{}, fmt.Errorf("regenerate output %s: %w", outputID, err)
	}
	d.log.Info().Str("output_id", outputID).Str("job_id", resp.JobID).Msg("regeneration queued")
	d.sync(ctx)
	return resp, nil
}

// RequestDelete opens a confirmation for deleting job. Nothing is sent to the
// server until the confirmation is confirmed.
func (d *Dispatcher) RequestDelete(job api.Job) (*DeleteConfirmation, error) {
	if !job.Status.IsTerminal() {
		return nil, ErrNotDeletable
	}
	return &DeleteConfirmation{d: d, job: job, open: true}, nil
}

// DeleteConfirmation is the pending second step of a delete.
type DeleteConfirmation struct {
	d   *Dispatcher
	job api.Job

	mu      sync.Mutex
	open    bool
	pending bool
	err     error
}

// Job returns the job the confirmation is for.
func (c *DeleteConfirmation) Job() api.Job {
	return c.job
}

// Prompt describes the job so the user knows what is being deleted.
func (c *DeleteConfirmation) Prompt() string {
	created := "unknown"
	if t := c.job.ParsedCreatedAt(); !t.IsZero() {
		created = t.Local().Format("Jan 2, 2006 3:04 PM")
	}
	return fmt.Sprintf("Delete %q?\nStatus: %s\nCreated: %s\nThis cannot be undone.",
		c.job.DisplayTitle(), c.job.Status.Label(), created)
}

// Open reports whether the confirmation still awaits an answer.
func (c *DeleteConfirmation) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Pending reports whether the delete request is in flight.
func (c *DeleteConfirmation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Err returns the last failed attempt's error.
func (c *DeleteConfirmation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Dismiss closes the confirmation without deleting.
func (c *DeleteConfirmation) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		c.open = false
	}
}

// Confirm sends the delete. On failure the confirmation stays open with the
// error recorded so the user can retry or dismiss.
func (c *DeleteConfirmation) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrConfirmationClosed
	}
	if !c.d.acquire(c.job.ID, "delete") {
		c.mu.Unlock()
		return ErrActionInFlight
	}
	c.pending = true
	c.err = nil
	c.mu.Unlock()

	err := c.d.mutator.DeleteJob(ctx, c.job.ID)
	c.d.release(c.job.ID)

	c.mu.Lock()
	c.pending = false
	if err != nil {
		c.err = fmt.Errorf("delete job %s: %w", c.job.ID, err)
		c.mu.Unlock()
		c.d.log.Warn().Err(err).Str("job_id", c.job.ID).Msg("delete failed")
		return c.err
	}
	c.open = false
	c.mu.Unlock()

	c.d.log.Info().Str("job_id", c.job.ID).Msg("job deleted")
	c.d.sync(ctx)
	return nil
}
