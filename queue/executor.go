package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/backoff"
	"github.com/xraph/syncq/hook"
	"github.com/xraph/syncq/job"
	"github.com/xraph/syncq/middleware"
)

// FailureReporter receives jobs that failed terminally, after the
// attempt budget is spent. The recovery manager satisfies it.
type FailureReporter interface {
	ReportFailure(ctx context.Context, j *job.Job, cause error)
}

// Executor runs a single claimed job through the middleware chain and
// its registered processor, then applies retry or terminal-failure
// handling.
type Executor struct {
	registry *job.Registry
	store    job.Store
	hooks    *hook.Registry
	backoff  backoff.Strategy
	reporter FailureReporter
	mw       middleware.Middleware
	logger   *slog.Logger
}

// NewExecutor creates an Executor. A nil backoff falls back to the
// default exponential strategy; reporter may be nil.
func NewExecutor(
	registry *job.Registry,
	store job.Store,
	hooks *hook.Registry,
	bo backoff.Strategy,
	reporter FailureReporter,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	if bo == nil {
		bo = backoff.DefaultQueueStrategy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		store:    store,
		hooks:    hooks,
		backoff:  bo,
		reporter: reporter,
		mw:       middleware.Chain(mws...),
		logger:   logger,
	}
}

// Execute runs one active job to a settled state. On success the job
// completes; on failure with budget left it is re-scheduled with
// backoff; on the final failure it is marked failed and reported.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	processor, ok := e.registry.Get(j.Type)
	if !ok {
		// An unroutable type is a configuration error: fail loudly and
		// immediately, with no retry scheduling.
		e.logger.Error("no processor registered",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
		)
		return e.failTerminal(ctx, j, syncq.ErrNoProcessor, false)
	}

	start := time.Now()
	terminal := func(ctx context.Context) error {
		return processor(ctx, j)
	}

	err := e.mw(ctx, j, terminal)
	elapsed := time.Since(start)

	now := time.Now().UTC()
	j.UpdatedAt = now

	if err != nil {
		return e.handleFailure(ctx, j, err, now)
	}
	return e.handleSuccess(ctx, j, now, elapsed)
}

func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	j.State = job.StateCompleted
	j.CompletedAt = &now
	j.LastError = ""

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("update job after success",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}
	if e.hooks != nil {
		e.hooks.EmitJobCompleted(ctx, j, elapsed)
	}
	return nil
}

func (e *Executor) handleFailure(ctx context.Context, j *job.Job, cause error, now time.Time) error {
	j.LastError = cause.Error()

	if j.Attempts < j.MaxAttempts {
		return e.scheduleRetry(ctx, j, cause, now)
	}
	return e.failTerminal(ctx, j, cause, true)
}

// scheduleRetry parks the job until the backoff delay elapses. A zero
// delay puts it straight back in the waiting set.
func (e *Executor) scheduleRetry(ctx context.Context, j *job.Job, cause error, now time.Time) error {
	delay := e.backoff.Delay(j.Attempts)
	if delay > 0 {
		j.State = job.StateDelayed
		j.RunAt = now.Add(delay)
	} else {
		j.State = job.StateWaiting
		j.RunAt = now
	}

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("update job for retry",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return err
	}

	if e.hooks != nil {
		e.hooks.EmitJobRetrying(ctx, j, j.Attempts, j.RunAt)
	}
	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.Int("attempt", j.Attempts),
		slog.Int("max_attempts", j.MaxAttempts),
		slog.Duration("delay", delay),
	)
	return cause
}

// failTerminal marks the job failed. The recovery layer is notified
// only for genuine processor failures; an unroutable type would just
// fail identically again.
func (e *Executor) failTerminal(ctx context.Context, j *job.Job, cause error, report bool) error {
	now := time.Now().UTC()
	j.State = job.StateFailed
	j.FailedAt = &now
	j.LastError = cause.Error()
	j.UpdatedAt = now

	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("update job as failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
		return errors.Join(cause, err)
	}

	if e.hooks != nil {
		e.hooks.EmitJobFailed(ctx, j, cause)
	}
	if report && e.reporter != nil {
		e.reporter.ReportFailure(ctx, j, cause)
	}

	e.logger.Warn("job failed terminally",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", j.Type),
		slog.Int("attempts", j.Attempts),
		slog.String("error", cause.Error()),
	)
	return cause
}
