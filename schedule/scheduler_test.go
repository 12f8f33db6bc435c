package schedule_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
	"github.com/xraph/syncq/schedule"
)

// captureEnqueue records every enqueue the scheduler performs.
type captureEnqueue struct {
	mu   sync.Mutex
	jobs []*job.Job
	err  error
}

func (c *captureEnqueue) fn(_ context.Context, jobType string, payload []byte, opts ...job.Option) (*job.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	o := job.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	j := &job.Job{
		Entity:   syncq.NewEntity(),
		ID:       id.NewJobID(),
		Type:     jobType,
		Payload:  payload,
		State:    job.StateWaiting,
		Priority: o.Priority,
	}
	c.jobs = append(c.jobs, j)
	return j, nil
}

func (c *captureEnqueue) snapshot() []*job.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*job.Job(nil), c.jobs...)
}

func TestAdd_RejectsBadInput(t *testing.T) {
	s := schedule.NewScheduler((&captureEnqueue{}).fn, slog.Default())

	if err := s.Add("", "@every 1m", "sync.contact", nil); err == nil {
		t.Error("Add accepted an empty name")
	}
	if err := s.Add("bad", "every minute or so", "sync.contact", nil); err == nil {
		t.Error("Add accepted an invalid cron expression")
	}
}

func TestTick_FiresDueEntriesOnce(t *testing.T) {
	sink := &captureEnqueue{}
	s := schedule.NewScheduler(sink.fn, slog.Default())

	if err := s.Add("contacts", "@every 1m", "sync.contact", []byte(`{"all":true}`)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	due := entries[0].NextRunAt

	// Before the due time nothing fires.
	if n := s.Tick(context.Background(), due.Add(-time.Second)); n != 0 {
		t.Errorf("early tick fired %d entries", n)
	}

	if n := s.Tick(context.Background(), due); n != 1 {
		t.Fatalf("due tick fired %d entries, want 1", n)
	}
	jobs := sink.snapshot()
	if len(jobs) != 1 || jobs[0].Type != "sync.contact" {
		t.Fatalf("enqueued jobs = %v", jobs)
	}
	if string(jobs[0].Payload) != `{"all":true}` {
		t.Errorf("payload = %s", jobs[0].Payload)
	}

	// The same due time does not fire again; the entry advanced.
	if n := s.Tick(context.Background(), due); n != 0 {
		t.Errorf("repeated tick fired %d entries", n)
	}
	got := s.Entries()[0]
	if got.LastRunAt == nil || !got.LastRunAt.Equal(due) {
		t.Errorf("LastRunAt = %v, want %v", got.LastRunAt, due)
	}
	if !got.NextRunAt.After(due) {
		t.Errorf("NextRunAt = %v, want after %v", got.NextRunAt, due)
	}
}

func TestTick_RecurrenceAdvances(t *testing.T) {
	sink := &captureEnqueue{}
	s := schedule.NewScheduler(sink.fn, slog.Default())
	if err := s.Add("deals", "@every 1m", "sync.deal", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	now := s.Entries()[0].NextRunAt
	for range 3 {
		if n := s.Tick(context.Background(), now); n != 1 {
			t.Fatalf("tick at %v fired %d entries, want 1", now, n)
		}
		now = s.Entries()[0].NextRunAt
	}
	if got := len(sink.snapshot()); got != 3 {
		t.Errorf("enqueued %d jobs, want 3", got)
	}
}

func TestDisableEnable(t *testing.T) {
	sink := &captureEnqueue{}
	s := schedule.NewScheduler(sink.fn, slog.Default())
	if err := s.Add("contacts", "@every 1m", "sync.contact", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	due := s.Entries()[0].NextRunAt

	if !s.Disable("contacts") {
		t.Fatal("Disable returned false for an existing entry")
	}
	if n := s.Tick(context.Background(), due.Add(time.Hour)); n != 0 {
		t.Errorf("disabled entry fired %d times", n)
	}

	if !s.Enable("contacts") {
		t.Fatal("Enable returned false for an existing entry")
	}
	// Re-enabling reschedules; missed runs are not replayed.
	next := s.Entries()[0].NextRunAt
	if !next.After(time.Now().Add(-time.Second)) {
		t.Errorf("NextRunAt after enable = %v, want future", next)
	}
	if n := s.Tick(context.Background(), next); n != 1 {
		t.Errorf("re-enabled entry fired %d times, want 1", n)
	}

	if s.Enable("missing") || s.Disable("missing") {
		t.Error("Enable/Disable reported success for an unknown entry")
	}
}

func TestRemove(t *testing.T) {
	s := schedule.NewScheduler((&captureEnqueue{}).fn, slog.Default())
	if err := s.Add("contacts", "@every 1m", "sync.contact", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Remove("contacts")
	s.Remove("never-existed")
	if got := len(s.Entries()); got != 0 {
		t.Errorf("entries = %d, want 0", got)
	}
}

func TestAdd_ReplacesByName(t *testing.T) {
	sink := &captureEnqueue{}
	s := schedule.NewScheduler(sink.fn, slog.Default())
	if err := s.Add("nightly", "@every 1m", "sync.contact", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("nightly", "@every 2m", "sync.deal", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].JobType != "sync.deal" || entries[0].Spec != "@every 2m" {
		t.Errorf("entry = %+v, want replaced definition", entries[0])
	}
}

func TestTick_EnqueueErrorKeepsSchedule(t *testing.T) {
	sink := &captureEnqueue{err: errors.New("queue stopped")}
	s := schedule.NewScheduler(sink.fn, slog.Default())
	if err := s.Add("contacts", "@every 1m", "sync.contact", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	due := s.Entries()[0].NextRunAt

	if n := s.Tick(context.Background(), due); n != 0 {
		t.Errorf("failed enqueue counted as fired: %d", n)
	}
	// The entry is not stuck: it advanced to the next occurrence.
	if !s.Entries()[0].NextRunAt.After(due) {
		t.Error("entry did not advance past the failed firing")
	}
}

func TestStartStop_FiresOnTicker(t *testing.T) {
	sink := &captureEnqueue{}
	s := schedule.NewScheduler(sink.fn, slog.Default(),
		schedule.WithTickInterval(10*time.Millisecond))
	// "@every 10ms" keeps the entry due nearly every tick.
	if err := s.Add("fast", "@every 10ms", "sync.contact", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	s.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for len(sink.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never fired")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	s.Stop()

	// Stop is idempotent; a second Start works.
	s.Stop()
	s.Start(context.Background())
	s.Stop()
}

func TestOptionsReachEnqueue(t *testing.T) {
	sink := &captureEnqueue{}
	s := schedule.NewScheduler(sink.fn, slog.Default())
	if err := s.Add("prio", "@every 1m", "sync.contact", nil, job.WithPriority(8)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Tick(context.Background(), s.Entries()[0].NextRunAt)

	jobs := sink.snapshot()
	if len(jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs))
	}
	if jobs[0].Priority != 8 {
		t.Errorf("Priority = %d, want 8", jobs[0].Priority)
	}
}
