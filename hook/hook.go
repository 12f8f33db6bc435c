// Package hook defines the lifecycle hook system for syncq.
// Hooks are notified of lifecycle events (job enqueued, completed,
// error recorded, entry dead-lettered, etc.) and can react to them —
// logging, metrics, dashboards.
//
// Each lifecycle event is a separate interface so hooks opt in only
// to the events they care about.
package hook

import (
	"context"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle events
// ──────────────────────────────────────────────────

// JobEnqueued is called after a job is successfully enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when the engine begins executing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobRetrying is called when a job attempt fails but budget remains.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobFailed is called when a job fails terminally (budget exhausted).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// ──────────────────────────────────────────────────
// Recovery lifecycle events
// ──────────────────────────────────────────────────

// ErrorRecorded is called after the recovery manager records a failure.
type ErrorRecorded interface {
	OnErrorRecorded(ctx context.Context, serr *syncq.SyncError) error
}

// ErrorResolved is called when a recorded error reaches a terminal
// resolution without being dead-lettered.
type ErrorResolved interface {
	OnErrorResolved(ctx context.Context, serr *syncq.SyncError) error
}

// ErrorEscalated is called when a recorded error is migrated into the
// dead letter store.
type ErrorEscalated interface {
	OnErrorEscalated(ctx context.Context, serr *syncq.SyncError, entryID id.DLQID) error
}

// ──────────────────────────────────────────────────
// Dead letter events
// ──────────────────────────────────────────────────

// DLQResolved is called when a dead letter entry is reprocessed
// successfully.
type DLQResolved interface {
	OnDLQResolved(ctx context.Context, entryID id.DLQID) error
}

// DLQAbandoned is called when a dead letter entry exhausts its
// reprocessing attempts or is abandoned by an operator.
type DLQAbandoned interface {
	OnDLQAbandoned(ctx context.Context, entryID id.DLQID) error
}

// ──────────────────────────────────────────────────
// Engine events
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
