package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/syncq/job"
)

// EnqueueFunc is the callback the scheduler uses to enqueue jobs. The
// queue engine's Enqueue satisfies it; the indirection keeps this
// package free of a queue dependency.
type EnqueueFunc func(ctx context.Context, jobType string, payload []byte, opts ...job.Option) (*job.Job, error)

// cronParser accepts standard five-field cron and descriptors like
// "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSpec parses a cron expression.
func ParseSpec(spec string) (cronlib.Schedule, error) {
	return cronParser.Parse(spec)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due
// entries. The default is one second.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.tickInterval = d }
}

// Scheduler fires recurring entries on a tick loop.
type Scheduler struct {
	enqueue      EnqueueFunc
	logger       *slog.Logger
	tickInterval time.Duration

	mu      sync.Mutex
	entries map[string]*entryState
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type entryState struct {
	entry Entry
	sched cronlib.Schedule
}

// NewScheduler creates a Scheduler that enqueues via fn.
func NewScheduler(fn EnqueueFunc, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		enqueue:      fn,
		logger:       logger,
		tickInterval: time.Second,
		entries:      make(map[string]*entryState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add installs (or replaces) a recurring entry. The entry is enabled
// immediately; its first firing is the next time the expression
// matches.
func (s *Scheduler) Add(name, spec, jobType string, payload []byte, opts ...job.Option) error {
	if name == "" {
		return fmt.Errorf("schedule: entry name must not be empty")
	}
	sched, err := ParseSpec(spec)
	if err != nil {
		return fmt.Errorf("schedule: parse %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = &entryState{
		entry: Entry{
			Name:      name,
			Spec:      spec,
			JobType:   jobType,
			Payload:   payload,
			Enabled:   true,
			NextRunAt: sched.Next(time.Now().UTC()),
			opts:      opts,
		},
		sched: sched,
	}
	return nil
}

// Remove deletes an entry. Removing an unknown name is a no-op.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// Enable re-enables a disabled entry and reports whether it exists.
func (s *Scheduler) Enable(name string) bool {
	return s.setEnabled(name, true)
}

// Disable keeps the entry but stops it firing.
func (s *Scheduler) Disable(name string) bool {
	return s.setEnabled(name, false)
}

func (s *Scheduler) setEnabled(name string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[name]
	if !ok {
		return false
	}
	if enabled && !st.entry.Enabled {
		// A re-enabled entry fires at its next due time, not for the
		// runs it missed.
		st.entry.NextRunAt = st.sched.Next(time.Now().UTC())
	}
	st.entry.Enabled = enabled
	return true
}

// Entries returns a snapshot of all entries, sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, st.entry)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Start launches the tick loop. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.doneCh)
}

// Stop halts the tick loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (s *Scheduler) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick fires every enabled entry due at now and returns how many jobs
// were enqueued. Exposed for tests and hosts that drive scheduling
// themselves.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	due := s.collectDue(now)

	fired := 0
	for _, st := range due {
		j, err := s.enqueue(ctx, st.entry.JobType, st.entry.Payload, st.entry.opts...)
		if err != nil {
			s.logger.Error("schedule enqueue",
				slog.String("entry", st.entry.Name),
				slog.String("job_type", st.entry.JobType),
				slog.String("error", err.Error()),
			)
			continue
		}
		fired++
		s.logger.Debug("schedule fired",
			slog.String("entry", st.entry.Name),
			slog.String("job_id", j.ID.String()),
		)
	}
	return fired
}

// collectDue advances due entries to their next run time under the
// lock and returns them for firing outside it.
func (s *Scheduler) collectDue(now time.Time) []*entryState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*entryState
	for _, st := range s.entries {
		if !st.entry.Enabled || st.entry.NextRunAt.After(now) {
			continue
		}
		ts := now
		st.entry.LastRunAt = &ts
		st.entry.NextRunAt = st.sched.Next(now)
		due = append(due, st)
	}
	return due
}
