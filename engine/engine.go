package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/backoff"
	"github.com/xraph/syncq/dlq"
	"github.com/xraph/syncq/hook"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/janitor"
	"github.com/xraph/syncq/job"
	mw "github.com/xraph/syncq/middleware"
	"github.com/xraph/syncq/observability"
	"github.com/xraph/syncq/queue"
	"github.com/xraph/syncq/recovery"
	"github.com/xraph/syncq/schedule"
	"github.com/xraph/syncq/store/memory"
)

// Engine bundles the queue engine and the recovery layer behind one
// lifecycle. Use Build to create one.
type Engine struct {
	cfg      syncq.Config
	logger   *slog.Logger
	store    any
	registry *job.Registry
	hooks    *hook.Registry

	// Option defaults per job type, captured from typed definitions.
	defMu    sync.RWMutex
	defaults map[string]job.Options

	queue      *queue.Engine
	manager    *recovery.Manager
	dlqService *dlq.Service
	poller     *recovery.Poller
	janitor    *janitor.Janitor
	scheduler  *schedule.Scheduler

	bo          backoff.Strategy
	hookList    []hook.Hook
	mws         []mw.Middleware
	limits      []queue.TypeLimit
	reprocessor dlq.Reprocessor
	janitorOpts []janitor.Option
	schedOpts   []schedule.Option
	runJanitor  bool
	noReporting bool

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default configuration.
func WithConfig(cfg syncq.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger for all subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStore sets the backing store. It must implement job.Store,
// dlq.Store, and recovery.Store; the in-memory store is the default.
func WithStore(store any) Option {
	return func(e *Engine) { e.store = store }
}

// WithBackoff sets the queue engine's retry backoff strategy. The
// default is exponential: 1s base, doubling, capped at one minute.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) { e.bo = b }
}

// WithMiddleware appends middleware to the default chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) {
		e.hookList = append(e.hookList, h)
	}
}

// WithTypeLimits installs per-type rate limiting and concurrency caps.
func WithTypeLimits(limits ...queue.TypeLimit) Option {
	return func(e *Engine) { e.limits = append(e.limits, limits...) }
}

// WithReprocessor overrides the dead letter reprocessor. The default
// re-runs the original job's registered processor in place.
func WithReprocessor(rp dlq.Reprocessor) Option {
	return func(e *Engine) { e.reprocessor = rp }
}

// WithJanitor enables the scheduled cleanup sweeps.
func WithJanitor(opts ...janitor.Option) Option {
	return func(e *Engine) {
		e.runJanitor = true
		e.janitorOpts = append(e.janitorOpts, opts...)
	}
}

// WithScheduleOptions configures the recurring scheduler, e.g. its
// tick interval.
func WithScheduleOptions(opts ...schedule.Option) Option {
	return func(e *Engine) { e.schedOpts = append(e.schedOpts, opts...) }
}

// WithoutFailureReporting disconnects the queue engine from the
// recovery manager: terminal queue failures stay in the failed list
// and nothing is recorded or escalated automatically. Callers then
// report failures themselves via Recovery().RecordError.
func WithoutFailureReporting() Option {
	return func(e *Engine) { e.noReporting = true }
}

// WithTracerProvider sets a custom OTel TracerProvider. When unset the
// global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for both the
// metrics middleware and the lifecycle metrics hook. When unset the
// global provider is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// Build assembles an Engine. The store must implement job.Store,
// dlq.Store, and recovery.Store (the bundled memory store implements
// all three).
func Build(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      syncq.DefaultConfig(),
		logger:   slog.Default(),
		registry: job.NewRegistry(),
		defaults: make(map[string]job.Options),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = memory.New()
	}
	js, ok := e.store.(job.Store)
	if !ok {
		return nil, fmt.Errorf("syncq: store does not implement job.Store")
	}
	ds, ok := e.store.(dlq.Store)
	if !ok {
		return nil, fmt.Errorf("syncq: store does not implement dlq.Store")
	}
	rs, ok := e.store.(recovery.Store)
	if !ok {
		return nil, fmt.Errorf("syncq: store does not implement recovery.Store")
	}

	e.hooks = hook.NewRegistry(e.logger)

	// Lifecycle metrics hook (custom provider or global).
	if e.meterProvider != nil {
		meter := e.meterProvider.Meter("github.com/xraph/syncq/observability")
		e.hooks.Register(observability.NewMetricsHookWithMeter(meter))
	} else {
		e.hooks.Register(observability.NewMetricsHook())
	}
	for _, h := range e.hookList {
		e.hooks.Register(h)
	}

	if e.bo == nil {
		e.bo = backoff.DefaultQueueStrategy()
	}

	// Default reprocessor: re-run the original job's processor in
	// place.
	if e.reprocessor == nil {
		e.reprocessor = func(ctx context.Context, original *job.Job) error {
			p, ok := e.registry.Get(original.Type)
			if !ok {
				return syncq.ErrNoProcessor
			}
			return p(ctx, original)
		}
	}

	e.dlqService = dlq.NewService(ds, js, e.reprocessor, e.logger)
	e.manager = recovery.NewManager(rs, e.dlqService, e.hooks, e.logger)
	e.hooks.Register(completionResolver{manager: e.manager})

	// Tracing and metrics middleware (custom providers or global).
	var tracingMw mw.Middleware
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer("github.com/xraph/syncq"))
	} else {
		tracingMw = mw.Tracing()
	}
	var metricsMw mw.Middleware
	if e.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(e.meterProvider.Meter("github.com/xraph/syncq"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging
	// → timeout, then user middleware.
	allMws := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
		mw.Timeout(e.logger),
	}
	allMws = append(allMws, e.mws...)

	var reporter queue.FailureReporter
	if !e.noReporting {
		reporter = e.manager
	}
	executor := queue.NewExecutor(e.registry, js, e.hooks, e.bo, reporter, e.logger, allMws...)

	qOpts := []queue.Option{queue.WithConfig(e.cfg)}
	if len(e.limits) > 0 {
		qOpts = append(qOpts, queue.WithLimits(queue.NewLimits(e.limits...)))
	}
	e.queue = queue.NewEngine(js, e.registry, executor, e.hooks, e.logger, qOpts...)

	e.poller = recovery.NewPoller(e.manager, e.queue, e.cfg.RetryPollInterval, e.logger)
	e.scheduler = schedule.NewScheduler(e.queue.Enqueue, e.logger, e.schedOpts...)

	if e.runJanitor {
		e.janitor = janitor.New(e.queue, e.manager, e.logger, e.janitorOpts...)
	}
	return e, nil
}

// Start launches the dispatch loop, the retry poller, and the janitor
// when enabled.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.queue.Start(ctx); err != nil {
		return err
	}
	e.poller.Start(ctx)
	e.scheduler.Start(ctx)
	if e.janitor != nil {
		if err := e.janitor.Start(); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
	}
	return nil
}

// Stop shuts everything down in reverse order: janitor, scheduler,
// poller, then the queue engine's graceful drain.
func (e *Engine) Stop(ctx context.Context) error {
	if e.janitor != nil {
		e.janitor.Stop()
	}
	e.scheduler.Stop()
	e.poller.Stop()
	return e.queue.Stop(ctx)
}

// Register registers a typed job definition. The definition's option
// defaults (priority, delay, attempts, timeout) apply to every enqueue
// of its type unless overridden per call.
func Register[T any](e *Engine, def *job.Definition[T]) {
	job.RegisterDefinition(e.registry, def)
	e.defMu.Lock()
	e.defaults[def.Type] = def.Opts
	e.defMu.Unlock()
}

// withDefaults returns the caller's options prefixed with the job
// type's definition defaults, when a typed definition registered any.
func (e *Engine) withDefaults(jobType string, opts []job.Option) []job.Option {
	e.defMu.RLock()
	d, ok := e.defaults[jobType]
	e.defMu.RUnlock()
	if !ok {
		return opts
	}
	base := func(o *job.Options) { *o = d }
	return append([]job.Option{base}, opts...)
}

// Enqueue marshals payload to JSON and enqueues a job of the given
// type.
func Enqueue[T any](ctx context.Context, e *Engine, jobType string, payload T, opts ...job.Option) (*job.Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for job %q: %w", jobType, err)
	}
	return e.queue.Enqueue(ctx, jobType, data, e.withDefaults(jobType, opts)...)
}

// EnqueueRaw enqueues a job with a pre-serialized payload.
func (e *Engine) EnqueueRaw(ctx context.Context, jobType string, payload []byte, opts ...job.Option) (*job.Job, error) {
	return e.queue.Enqueue(ctx, jobType, payload, e.withDefaults(jobType, opts)...)
}

// RegisterProcessor installs a raw processor for a job type.
func (e *Engine) RegisterProcessor(jobType string, p job.ProcessorFunc) {
	e.registry.Register(jobType, p)
}

// Schedule installs a recurring enqueue under the given name. Standard
// five-field cron expressions and descriptors like "@every 30s" are
// accepted.
func (e *Engine) Schedule(name, spec, jobType string, payload []byte, opts ...job.Option) error {
	return e.scheduler.Add(name, spec, jobType, payload, opts...)
}

// ──────────────────────────────────────────────────
// Operator surface
// ──────────────────────────────────────────────────

// Stats returns the queue engine's per-state counts.
func (e *Engine) Stats(ctx context.Context) (*queue.Stats, error) {
	return e.queue.Stats(ctx)
}

// FailedJobs returns up to limit terminally failed jobs.
func (e *Engine) FailedJobs(ctx context.Context, limit int) ([]*job.Job, error) {
	return e.queue.FailedJobs(ctx, limit)
}

// RetryFailedJobs resets matching failed jobs back to waiting. No IDs
// means all failed jobs.
func (e *Engine) RetryFailedJobs(ctx context.Context, jobIDs ...id.JobID) (int, error) {
	return e.queue.RetryFailedJobs(ctx, jobIDs...)
}

// DeadLetterItems lists dead letter entries, optionally filtered by
// status.
func (e *Engine) DeadLetterItems(ctx context.Context, status dlq.Status) ([]*dlq.Entry, error) {
	return e.dlqService.DLQStore().ListDLQ(ctx, dlq.ListOpts{Status: status})
}

// ProcessDLQItem reprocesses one dead letter entry and reports whether
// it resolved.
func (e *Engine) ProcessDLQItem(ctx context.Context, entryID id.DLQID) (bool, error) {
	return e.manager.ProcessDLQItem(ctx, entryID)
}

// ErrorStats aggregates recovery statistics, optionally restricted to
// one scope.
func (e *Engine) ErrorStats(ctx context.Context, scopeID string) (*recovery.Stats, error) {
	return e.manager.GetStats(ctx, scopeID)
}

// ──────────────────────────────────────────────────
// Subsystem access
// ──────────────────────────────────────────────────

// Queue returns the queue engine.
func (e *Engine) Queue() *queue.Engine { return e.queue }

// Recovery returns the recovery manager.
func (e *Engine) Recovery() *recovery.Manager { return e.manager }

// DLQService returns the dead letter service for replay and
// inspection.
func (e *Engine) DLQService() *dlq.Service { return e.dlqService }

// Registry returns the processor registry.
func (e *Engine) Registry() *job.Registry { return e.registry }

// Hooks returns the lifecycle hook registry.
func (e *Engine) Hooks() *hook.Registry { return e.hooks }

// Poller returns the retry poller.
func (e *Engine) Poller() *recovery.Poller { return e.poller }

// Scheduler returns the recurring scheduler.
func (e *Engine) Scheduler() *schedule.Scheduler { return e.scheduler }

// completionResolver closes the loop between the queue and the
// recovery manager: when a job completes, errors recorded for it on
// earlier attempts are resolved so the poller stops rescheduling them.
type completionResolver struct {
	manager *recovery.Manager
}

func (completionResolver) Name() string { return "completion-resolver" }

func (r completionResolver) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	_, err := r.manager.ResolveErrorsForJob(ctx, j.ID)
	return err
}
