package hook

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
)

// Named entry types pair a hook implementation with the hook name
// captured at registration time. This avoids type-asserting back to
// Hook inside the emit methods.
type jobEnqueuedEntry struct {
	name string
	hook JobEnqueued
}

type jobStartedEntry struct {
	name string
	hook JobStarted
}

type jobCompletedEntry struct {
	name string
	hook JobCompleted
}

type jobRetryingEntry struct {
	name string
	hook JobRetrying
}

type jobFailedEntry struct {
	name string
	hook JobFailed
}

type errorRecordedEntry struct {
	name string
	hook ErrorRecorded
}

type errorResolvedEntry struct {
	name string
	hook ErrorResolved
}

type errorEscalatedEntry struct {
	name string
	hook ErrorEscalated
}

type dlqResolvedEntry struct {
	name string
	hook DLQResolved
}

type dlqAbandonedEntry struct {
	name string
	hook DLQAbandoned
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered hooks and dispatches lifecycle events to
// them. It type-caches hooks at registration time so emit calls iterate
// only over hooks that implement the relevant event.
type Registry struct {
	hooks  []Hook
	logger *slog.Logger

	// Type-cached slices for each lifecycle event.
	jobEnqueued    []jobEnqueuedEntry
	jobStarted     []jobStartedEntry
	jobCompleted   []jobCompletedEntry
	jobRetrying    []jobRetryingEntry
	jobFailed      []jobFailedEntry
	errorRecorded  []errorRecordedEntry
	errorResolved  []errorResolvedEntry
	errorEscalated []errorEscalatedEntry
	dlqResolved    []dlqResolvedEntry
	dlqAbandoned   []dlqAbandonedEntry
	shutdown       []shutdownEntry
}

// NewRegistry creates a hook registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a hook and type-asserts it into all applicable event
// caches. Hooks are notified in registration order.
func (r *Registry) Register(h Hook) {
	r.hooks = append(r.hooks, h)
	name := h.Name()

	if e, ok := h.(JobEnqueued); ok {
		r.jobEnqueued = append(r.jobEnqueued, jobEnqueuedEntry{name, e})
	}
	if e, ok := h.(JobStarted); ok {
		r.jobStarted = append(r.jobStarted, jobStartedEntry{name, e})
	}
	if e, ok := h.(JobCompleted); ok {
		r.jobCompleted = append(r.jobCompleted, jobCompletedEntry{name, e})
	}
	if e, ok := h.(JobRetrying); ok {
		r.jobRetrying = append(r.jobRetrying, jobRetryingEntry{name, e})
	}
	if e, ok := h.(JobFailed); ok {
		r.jobFailed = append(r.jobFailed, jobFailedEntry{name, e})
	}
	if e, ok := h.(ErrorRecorded); ok {
		r.errorRecorded = append(r.errorRecorded, errorRecordedEntry{name, e})
	}
	if e, ok := h.(ErrorResolved); ok {
		r.errorResolved = append(r.errorResolved, errorResolvedEntry{name, e})
	}
	if e, ok := h.(ErrorEscalated); ok {
		r.errorEscalated = append(r.errorEscalated, errorEscalatedEntry{name, e})
	}
	if e, ok := h.(DLQResolved); ok {
		r.dlqResolved = append(r.dlqResolved, dlqResolvedEntry{name, e})
	}
	if e, ok := h.(DLQAbandoned); ok {
		r.dlqAbandoned = append(r.dlqAbandoned, dlqAbandonedEntry{name, e})
	}
	if e, ok := h.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, e})
	}
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook { return r.hooks }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobEnqueued notifies all hooks that implement JobEnqueued.
func (r *Registry) EmitJobEnqueued(ctx context.Context, j *job.Job) {
	for _, e := range r.jobEnqueued {
		if err := e.hook.OnJobEnqueued(ctx, j); err != nil {
			r.logHookError("OnJobEnqueued", e.name, err)
		}
	}
}

// EmitJobStarted notifies all hooks that implement JobStarted.
func (r *Registry) EmitJobStarted(ctx context.Context, j *job.Job) {
	for _, e := range r.jobStarted {
		if err := e.hook.OnJobStarted(ctx, j); err != nil {
			r.logHookError("OnJobStarted", e.name, err)
		}
	}
}

// EmitJobCompleted notifies all hooks that implement JobCompleted.
func (r *Registry) EmitJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) {
	for _, e := range r.jobCompleted {
		if err := e.hook.OnJobCompleted(ctx, j, elapsed); err != nil {
			r.logHookError("OnJobCompleted", e.name, err)
		}
	}
}

// EmitJobRetrying notifies all hooks that implement JobRetrying.
func (r *Registry) EmitJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) {
	for _, e := range r.jobRetrying {
		if err := e.hook.OnJobRetrying(ctx, j, attempt, nextRunAt); err != nil {
			r.logHookError("OnJobRetrying", e.name, err)
		}
	}
}

// EmitJobFailed notifies all hooks that implement JobFailed.
func (r *Registry) EmitJobFailed(ctx context.Context, j *job.Job, jobErr error) {
	for _, e := range r.jobFailed {
		if err := e.hook.OnJobFailed(ctx, j, jobErr); err != nil {
			r.logHookError("OnJobFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Recovery event emitters
// ──────────────────────────────────────────────────

// EmitErrorRecorded notifies all hooks that implement ErrorRecorded.
func (r *Registry) EmitErrorRecorded(ctx context.Context, serr *syncq.SyncError) {
	for _, e := range r.errorRecorded {
		if err := e.hook.OnErrorRecorded(ctx, serr); err != nil {
			r.logHookError("OnErrorRecorded", e.name, err)
		}
	}
}

// EmitErrorResolved notifies all hooks that implement ErrorResolved.
func (r *Registry) EmitErrorResolved(ctx context.Context, serr *syncq.SyncError) {
	for _, e := range r.errorResolved {
		if err := e.hook.OnErrorResolved(ctx, serr); err != nil {
			r.logHookError("OnErrorResolved", e.name, err)
		}
	}
}

// EmitErrorEscalated notifies all hooks that implement ErrorEscalated.
func (r *Registry) EmitErrorEscalated(ctx context.Context, serr *syncq.SyncError, entryID id.DLQID) {
	for _, e := range r.errorEscalated {
		if err := e.hook.OnErrorEscalated(ctx, serr, entryID); err != nil {
			r.logHookError("OnErrorEscalated", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Dead letter event emitters
// ──────────────────────────────────────────────────

// EmitDLQResolved notifies all hooks that implement DLQResolved.
func (r *Registry) EmitDLQResolved(ctx context.Context, entryID id.DLQID) {
	for _, e := range r.dlqResolved {
		if err := e.hook.OnDLQResolved(ctx, entryID); err != nil {
			r.logHookError("OnDLQResolved", e.name, err)
		}
	}
}

// EmitDLQAbandoned notifies all hooks that implement DLQAbandoned.
func (r *Registry) EmitDLQAbandoned(ctx context.Context, entryID id.DLQID) {
	for _, e := range r.dlqAbandoned {
		if err := e.hook.OnDLQAbandoned(ctx, entryID); err != nil {
			r.logHookError("OnDLQAbandoned", e.name, err)
		}
	}
}

// EmitShutdown notifies all hooks that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Hook errors never propagate to the
// caller; a broken hook must not break job processing.
func (r *Registry) logHookError(event, name string, err error) {
	r.logger.Warn("hook error",
		slog.String("event", event),
		slog.String("hook", name),
		slog.String("error", err.Error()),
	)
}
