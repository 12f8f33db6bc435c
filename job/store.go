package job

import (
	"context"
	"time"

	"github.com/xraph/syncq/id"
)

// ListOpts controls pagination for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for jobs. The bundled
// implementation is in-memory; restart survival is the host's problem.
type Store interface {
	// EnqueueJob persists a new job in waiting or delayed state.
	EnqueueJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob persists changes to an existing job.
	UpdateJob(ctx context.Context, j *Job) error

	// DeleteJob removes a job by ID regardless of state.
	DeleteJob(ctx context.Context, jobID id.JobID) error

	// WakeDelayed moves delayed jobs whose RunAt has elapsed into
	// waiting state. Returns the number of jobs woken.
	WakeDelayed(ctx context.Context, now time.Time) (int, error)

	// ClaimWaiting atomically claims up to limit waiting jobs that are
	// eligible at now: each claimed job moves to active, has Attempts
	// incremented, and ProcessedAt set. Claims are ordered by priority
	// (descending) with ties broken by original enqueue order.
	ClaimWaiting(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// ListJobsByState returns jobs in the given state, oldest first.
	ListJobsByState(ctx context.Context, state State, opts ListOpts) ([]*Job, error)

	// CountByState returns the number of jobs in each state.
	CountByState(ctx context.Context) (map[State]int64, error)

	// ResetFailed moves failed jobs back to waiting with attempts,
	// error, and delay cleared. An empty ids slice resets all failed
	// jobs. Returns the number of jobs reset.
	ResetFailed(ctx context.Context, ids []id.JobID) (int, error)

	// PurgeTerminal removes completed and failed jobs whose terminal
	// timestamp is before the given time, bounded by limit per call
	// (zero means unbounded). Returns the number removed. This is the
	// only sanctioned path for discarding historical job records.
	PurgeTerminal(ctx context.Context, before time.Time, limit int) (int, error)
}
