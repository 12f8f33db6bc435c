// Package janitor schedules the two sanctioned purge paths: removing
// old terminal jobs from the queue engine and removing old resolved
// errors and dead letter entries from the recovery layer.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// QueueCleaner is the queue-side purge surface. The queue engine's
// Clean satisfies it.
type QueueCleaner interface {
	Clean(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// RecoveryCleaner is the recovery-side purge surface. The recovery
// manager's Cleanup satisfies it.
type RecoveryCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)
}

// Janitor runs periodic cleanup sweeps on a cron schedule.
type Janitor struct {
	queue    QueueCleaner
	recovery RecoveryCleaner
	logger   *slog.Logger

	schedule       string
	jobGrace       time.Duration
	errorRetention time.Duration
	cleanLimit     int

	cron *cron.Cron
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithSchedule sets the cron schedule expression. The default is
// "@every 5m". Standard five-field cron specs and @every descriptors
// are accepted.
func WithSchedule(spec string) Option {
	return func(j *Janitor) { j.schedule = spec }
}

// WithJobGrace sets how long terminal jobs are kept before Clean may
// discard them.
func WithJobGrace(d time.Duration) Option {
	return func(j *Janitor) { j.jobGrace = d }
}

// WithErrorRetention sets how long resolved errors and resolved dead
// letter entries are kept.
func WithErrorRetention(d time.Duration) Option {
	return func(j *Janitor) { j.errorRetention = d }
}

// WithCleanLimit bounds how many terminal jobs one sweep may remove.
func WithCleanLimit(n int) Option {
	return func(j *Janitor) { j.cleanLimit = n }
}

// New creates a Janitor over the given cleanup surfaces. Either
// surface may be nil to skip that side of the sweep.
func New(queue QueueCleaner, recovery RecoveryCleaner, logger *slog.Logger, opts ...Option) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		queue:          queue,
		recovery:       recovery,
		logger:         logger,
		schedule:       "@every 5m",
		jobGrace:       time.Hour,
		errorRetention: 7 * 24 * time.Hour,
		cleanLimit:     1000,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start registers the sweep with the cron runner and begins
// scheduling.
func (j *Janitor) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() { j.Sweep(context.Background()) }); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("janitor started",
		slog.String("schedule", j.schedule),
		slog.Duration("job_grace", j.jobGrace),
		slog.Duration("error_retention", j.errorRetention),
	)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("janitor stopped")
}

// Sweep runs one cleanup pass immediately. Exposed for tests and
// manual triggering.
func (j *Janitor) Sweep(ctx context.Context) {
	if j.queue != nil {
		if n, err := j.queue.Clean(ctx, j.jobGrace, j.cleanLimit); err != nil {
			j.logger.Error("janitor: clean terminal jobs", slog.String("error", err.Error()))
		} else if n > 0 {
			j.logger.Debug("janitor: cleaned terminal jobs", slog.Int("count", n))
		}
	}
	if j.recovery != nil {
		if n, err := j.recovery.Cleanup(ctx, j.errorRetention); err != nil {
			j.logger.Error("janitor: recovery cleanup", slog.String("error", err.Error()))
		} else if n > 0 {
			j.logger.Debug("janitor: purged recovery records", slog.Int("count", n))
		}
	}
}
