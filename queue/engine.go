package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/hook"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
)

// Stats is a point-in-time snapshot of the engine's job population.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Paused    bool  `json:"paused"`
}

// Engine is the queue engine: it owns the dispatch loop and the
// operator surface over one job store.
type Engine struct {
	store    job.Store
	registry *job.Registry
	executor *Executor
	hooks    *hook.Registry
	limits   *Limits
	cfg      syncq.Config
	logger   *slog.Logger

	paused   atomic.Bool
	inFlight atomic.Int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	activeMu   sync.Mutex
	activeJobs map[string]context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default engine configuration.
func WithConfig(cfg syncq.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLimits installs per-type rate limiting and concurrency caps.
func WithLimits(l *Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// NewEngine creates a queue engine over the given store and executor.
func NewEngine(
	store job.Store,
	registry *job.Registry,
	executor *Executor,
	hooks *hook.Registry,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:      store,
		registry:   registry,
		executor:   executor,
		hooks:      hooks,
		cfg:        syncq.DefaultConfig(),
		logger:     logger,
		activeJobs: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterProcessor installs the processor for a job type. The last
// registration for a type wins.
func (e *Engine) RegisterProcessor(jobType string, p job.ProcessorFunc) {
	e.registry.Register(jobType, p)
}

// Enqueue submits a new job. The type must be non-empty; a positive
// delay parks the job until the delay elapses.
func (e *Engine) Enqueue(ctx context.Context, jobType string, payload []byte, opts ...job.Option) (*job.Job, error) {
	if jobType == "" {
		return nil, syncq.ErrTypeEmpty
	}

	o := job.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	now := time.Now().UTC()
	j := &job.Job{
		Entity:      syncq.NewEntity(),
		ID:          id.NewJobID(),
		Type:        jobType,
		Payload:     payload,
		State:       job.StateWaiting,
		Priority:    o.Priority,
		MaxAttempts: o.MaxAttempts,
		Delay:       o.Delay,
		ScopeID:     o.ScopeID,
		SubjectID:   o.SubjectID,
		Timeout:     o.Timeout,
		RunAt:       now,
	}
	if o.Delay > 0 {
		j.State = job.StateDelayed
		j.RunAt = now.Add(o.Delay)
	}

	if err := e.store.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}

	e.logger.Debug("job enqueued",
		slog.String("job_id", j.ID.String()),
		slog.String("job_type", jobType),
		slog.Int("priority", j.Priority),
		slog.Duration("delay", o.Delay),
	)
	if e.hooks != nil {
		e.hooks.EmitJobEnqueued(ctx, j)
	}
	return j, nil
}

// Start launches the dispatch loop. Starting a running engine is a
// no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}
	e.running = true
	// Stop pauses dispatch before draining; a fresh Start must not
	// inherit that pause.
	e.paused.Store(false)
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	e.logger.Info("queue engine starting",
		slog.Int("concurrency", e.cfg.Concurrency),
		slog.Duration("tick", e.cfg.TickInterval),
	)
	go e.loop(ctx, e.stopCh, e.doneCh)
	return nil
}

func (e *Engine) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one dispatch pass: wake elapsed delayed jobs, then claim
// waiting jobs up to the free concurrency budget and execute them
// asynchronously. Exposed for tests and hosts that drive the engine
// with their own scheduler.
func (e *Engine) Tick(ctx context.Context) {
	woken, err := e.store.WakeDelayed(ctx, time.Now().UTC())
	if err != nil {
		e.logger.Error("wake delayed jobs", slog.String("error", err.Error()))
	} else if woken > 0 {
		e.logger.Debug("woke delayed jobs", slog.Int("count", woken))
	}

	if e.paused.Load() {
		return
	}

	budget := e.cfg.Concurrency - int(e.inFlight.Load())
	if budget <= 0 {
		return
	}

	claimed, err := e.store.ClaimWaiting(ctx, time.Now().UTC(), budget)
	if err != nil {
		e.logger.Error("claim waiting jobs", slog.String("error", err.Error()))
		return
	}

	for _, j := range claimed {
		if e.limits != nil && !e.limits.Acquire(j.Type) {
			e.deferLimited(ctx, j)
			continue
		}
		e.inFlight.Add(1)
		go e.run(ctx, j)
	}
}

// deferLimited returns a rate-limited claim to the waiting set with a
// one-tick delay, undoing the claim's attempt accounting.
func (e *Engine) deferLimited(ctx context.Context, j *job.Job) {
	j.State = job.StateDelayed
	j.Attempts--
	j.ProcessedAt = nil
	j.RunAt = time.Now().UTC().Add(e.cfg.TickInterval)
	if err := e.store.UpdateJob(ctx, j); err != nil {
		e.logger.Error("defer rate-limited job",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) run(ctx context.Context, j *job.Job) {
	defer e.inFlight.Add(-1)
	if e.limits != nil {
		defer e.limits.Release(j.Type)
	}

	if e.hooks != nil {
		e.hooks.EmitJobStarted(ctx, j)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.trackJob(j.ID.String(), cancel)
	defer func() {
		e.untrackJob(j.ID.String())
		cancel()
	}()

	if err := e.executor.Execute(runCtx, j); err != nil {
		e.logger.Debug("job execution failed",
			slog.String("job_id", j.ID.String()),
			slog.String("job_type", j.Type),
			slog.String("error", err.Error()),
		)
	}
}

// Pause stops the engine from claiming new jobs. In-flight jobs run to
// completion.
func (e *Engine) Pause() {
	if e.paused.CompareAndSwap(false, true) {
		e.logger.Info("queue engine paused")
	}
}

// Resume re-enables claiming after a Pause.
func (e *Engine) Resume() {
	if e.paused.CompareAndSwap(true, false) {
		e.logger.Info("queue engine resumed")
	}
}

// Paused reports whether claiming is currently suspended.
func (e *Engine) Paused() bool { return e.paused.Load() }

// Stop shuts the engine down: claiming stops, the ticker halts, and
// Stop polls until the active set is empty or the shutdown budget (or
// ctx) expires, at which point remaining jobs are cancelled.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	stopCh, doneCh := e.stopCh, e.doneCh
	e.mu.Unlock()

	e.Pause()
	close(stopCh)
	<-doneCh

	deadline := time.Now().Add(e.cfg.ShutdownTimeout)
	for e.inFlight.Load() > 0 {
		if time.Now().After(deadline) || ctx.Err() != nil {
			e.logger.Warn("shutdown timed out, cancelling active jobs",
				slog.Int64("active", e.inFlight.Load()),
			)
			e.cancelActiveJobs()
			return syncq.ErrDrainTimeout
		}
		time.Sleep(e.cfg.DrainPollInterval)
	}

	if e.hooks != nil {
		e.hooks.EmitShutdown(ctx)
	}
	e.logger.Info("queue engine stopped")
	return nil
}

// Drain blocks until no waiting, delayed, or active jobs remain, or
// ctx is done. The engine keeps dispatching while draining.
func (e *Engine) Drain(ctx context.Context) error {
	for {
		counts, err := e.store.CountByState(ctx)
		if err != nil {
			return err
		}
		pending := counts[job.StateWaiting] + counts[job.StateDelayed] + counts[job.StateActive]
		if pending == 0 && e.inFlight.Load() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return syncq.ErrDrainTimeout
		case <-time.After(e.cfg.DrainPollInterval):
		}
	}
}

// Stats returns current per-state job counts plus the paused flag.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	counts, err := e.store.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Waiting:   counts[job.StateWaiting],
		Delayed:   counts[job.StateDelayed],
		Active:    counts[job.StateActive],
		Completed: counts[job.StateCompleted],
		Failed:    counts[job.StateFailed],
		Paused:    e.paused.Load(),
	}, nil
}

// RemoveJob deletes a waiting or delayed job. Active jobs cannot be
// interrupted; terminal jobs are history and only Clean may discard
// them.
func (e *Engine) RemoveJob(ctx context.Context, jobID id.JobID) error {
	j, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	switch j.State {
	case job.StateActive:
		return syncq.ErrJobActive
	case job.StateCompleted, job.StateFailed:
		return syncq.ErrInvalidState
	}
	return e.store.DeleteJob(ctx, jobID)
}

// GetJob returns one job by ID.
func (e *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return e.store.GetJob(ctx, jobID)
}

// FailedJobs returns up to limit terminally failed jobs, oldest first.
func (e *Engine) FailedJobs(ctx context.Context, limit int) ([]*job.Job, error) {
	return e.store.ListJobsByState(ctx, job.StateFailed, job.ListOpts{Limit: limit})
}

// RetryFailedJobs resets matching failed jobs back to waiting with
// attempts, error, and delay cleared. No IDs means every failed job.
// It returns the number of jobs reset.
func (e *Engine) RetryFailedJobs(ctx context.Context, jobIDs ...id.JobID) (int, error) {
	n, err := e.store.ResetFailed(ctx, jobIDs)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logger.Info("failed jobs reset", slog.Int("count", n))
	}
	return n, nil
}

// Clean permanently removes completed and failed jobs older than
// grace, at most limit per call. This is the only sanctioned path for
// discarding historical job records.
func (e *Engine) Clean(ctx context.Context, grace time.Duration, limit int) (int, error) {
	n, err := e.store.PurgeTerminal(ctx, time.Now().UTC().Add(-grace), limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e.logger.Debug("cleaned terminal jobs", slog.Int("count", n))
	}
	return n, nil
}

// Store exposes the backing job store.
func (e *Engine) Store() job.Store { return e.store }

func (e *Engine) trackJob(key string, cancel context.CancelFunc) {
	e.activeMu.Lock()
	e.activeJobs[key] = cancel
	e.activeMu.Unlock()
}

func (e *Engine) untrackJob(key string) {
	e.activeMu.Lock()
	delete(e.activeJobs, key)
	e.activeMu.Unlock()
}

func (e *Engine) cancelActiveJobs() {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	for key, cancel := range e.activeJobs {
		e.logger.Warn("cancelling active job", slog.String("job_id", key))
		cancel()
	}
}
