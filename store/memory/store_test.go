package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/dlq"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
	"github.com/xraph/syncq/store/memory"
)

func newJob(jobType string, priority int, state job.State) *job.Job {
	return &job.Job{
		Entity:      syncq.NewEntity(),
		ID:          id.NewJobID(),
		Type:        jobType,
		State:       state,
		Priority:    priority,
		MaxAttempts: 3,
		RunAt:       time.Now().UTC(),
	}
}

func TestEnqueueJob_DuplicateID(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	j := newJob("export", 0, job.StateWaiting)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if err := s.EnqueueJob(ctx, j); err != syncq.ErrJobAlreadyExists {
		t.Errorf("EnqueueJob duplicate = %v, want ErrJobAlreadyExists", err)
	}
}

func TestClaimWaiting_PriorityThenEnqueueOrder(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	low := newJob("low", 1, job.StateWaiting)
	highFirst := newJob("high-first", 5, job.StateWaiting)
	highSecond := newJob("high-second", 5, job.StateWaiting)

	for _, j := range []*job.Job{low, highFirst, highSecond} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	claimed, err := s.ClaimWaiting(ctx, time.Now().UTC(), 3)
	if err != nil {
		t.Fatalf("ClaimWaiting: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("claimed %d jobs, want 3", len(claimed))
	}

	want := []id.JobID{highFirst.ID, highSecond.ID, low.ID}
	for i, j := range claimed {
		if j.ID != want[i] {
			t.Errorf("claimed[%d] = %s, want %s", i, j.Type, want[i])
		}
	}
}

func TestClaimWaiting_MarksActiveAndCountsAttempt(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	j := newJob("export", 0, job.StateWaiting)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimWaiting(ctx, time.Now().UTC(), 1)
	if err != nil {
		t.Fatalf("ClaimWaiting: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed %d jobs, want 1", len(claimed))
	}
	got := claimed[0]
	if got.State != job.StateActive {
		t.Errorf("State = %q, want %q", got.State, job.StateActive)
	}
	if got.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", got.Attempts)
	}
	if got.ProcessedAt == nil {
		t.Error("expected ProcessedAt to be set")
	}

	// A second claim pass must not re-claim the active job.
	again, err := s.ClaimWaiting(ctx, time.Now().UTC(), 1)
	if err != nil {
		t.Fatalf("ClaimWaiting[2]: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second claim returned %d jobs, want 0", len(again))
	}
}

func TestClaimWaiting_RespectsLimit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for range 5 {
		if err := s.EnqueueJob(ctx, newJob("bulk", 0, job.StateWaiting)); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	claimed, err := s.ClaimWaiting(ctx, time.Now().UTC(), 2)
	if err != nil {
		t.Fatalf("ClaimWaiting: %v", err)
	}
	if len(claimed) != 2 {
		t.Errorf("claimed %d jobs, want 2", len(claimed))
	}
}

func TestWakeDelayed(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	due := newJob("due", 0, job.StateDelayed)
	due.RunAt = now.Add(-time.Second)
	future := newJob("future", 0, job.StateDelayed)
	future.RunAt = now.Add(time.Hour)

	for _, j := range []*job.Job{due, future} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	woken, err := s.WakeDelayed(ctx, now)
	if err != nil {
		t.Fatalf("WakeDelayed: %v", err)
	}
	if woken != 1 {
		t.Errorf("woken = %d, want 1", woken)
	}

	got, err := s.GetJob(ctx, due.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateWaiting {
		t.Errorf("due job State = %q, want %q", got.State, job.StateWaiting)
	}

	still, err := s.GetJob(ctx, future.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if still.State != job.StateDelayed {
		t.Errorf("future job State = %q, want %q", still.State, job.StateDelayed)
	}
}

func TestResetFailed_AllAndSelective(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	a := newJob("a", 0, job.StateFailed)
	a.Attempts = 3
	a.LastError = "boom"
	a.FailedAt = &now
	b := newJob("b", 0, job.StateFailed)
	b.Attempts = 3
	b.FailedAt = &now
	c := newJob("c", 0, job.StateCompleted)

	for _, j := range []*job.Job{a, b, c} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	n, err := s.ResetFailed(ctx, []id.JobID{a.ID})
	if err != nil {
		t.Fatalf("ResetFailed: %v", err)
	}
	if n != 1 {
		t.Errorf("reset = %d, want 1", n)
	}
	got, _ := s.GetJob(ctx, a.ID)
	if got.State != job.StateWaiting || got.Attempts != 0 || got.LastError != "" || got.FailedAt != nil {
		t.Errorf("reset job not cleared: state=%q attempts=%d lastError=%q", got.State, got.Attempts, got.LastError)
	}

	// Empty ids resets all remaining failed jobs; the completed job is
	// untouched.
	n, err = s.ResetFailed(ctx, nil)
	if err != nil {
		t.Fatalf("ResetFailed(all): %v", err)
	}
	if n != 1 {
		t.Errorf("reset all = %d, want 1", n)
	}
	gotC, _ := s.GetJob(ctx, c.ID)
	if gotC.State != job.StateCompleted {
		t.Errorf("completed job State = %q, want untouched", gotC.State)
	}
}

func TestPurgeTerminal_GraceAndLimit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC()

	oldDone := newJob("old-done", 0, job.StateCompleted)
	oldDone.CompletedAt = &old
	oldFail := newJob("old-fail", 0, job.StateFailed)
	oldFail.FailedAt = &old
	newDone := newJob("new-done", 0, job.StateCompleted)
	newDone.CompletedAt = &fresh
	running := newJob("running", 0, job.StateActive)

	for _, j := range []*job.Job{oldDone, oldFail, newDone, running} {
		if err := s.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	purged, err := s.PurgeTerminal(ctx, time.Now().UTC().Add(-time.Minute), 0)
	if err != nil {
		t.Fatalf("PurgeTerminal: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}
	if _, err := s.GetJob(ctx, oldDone.ID); err != syncq.ErrJobNotFound {
		t.Errorf("old completed job still present: %v", err)
	}
	if _, err := s.GetJob(ctx, newDone.ID); err != nil {
		t.Errorf("fresh completed job purged: %v", err)
	}
	if _, err := s.GetJob(ctx, running.ID); err != nil {
		t.Errorf("active job purged: %v", err)
	}
}

func TestCountByState(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	for range 2 {
		if err := s.EnqueueJob(ctx, newJob("w", 0, job.StateWaiting)); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}
	if err := s.EnqueueJob(ctx, newJob("d", 0, job.StateDelayed)); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	counts, err := s.CountByState(ctx)
	if err != nil {
		t.Fatalf("CountByState: %v", err)
	}
	if counts[job.StateWaiting] != 2 {
		t.Errorf("waiting = %d, want 2", counts[job.StateWaiting])
	}
	if counts[job.StateDelayed] != 1 {
		t.Errorf("delayed = %d, want 1", counts[job.StateDelayed])
	}
	if counts[job.StateActive] != 0 {
		t.Errorf("active = %d, want 0", counts[job.StateActive])
	}
}

func TestErrorStore_ReadyForRetry(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	ready := &syncq.SyncError{
		Entity: syncq.NewEntity(), ID: id.NewErrorID(),
		Type: syncq.ErrorTypeNetwork, NextRetryAt: &past,
	}
	notYet := &syncq.SyncError{
		Entity: syncq.NewEntity(), ID: id.NewErrorID(),
		Type: syncq.ErrorTypeNetwork, NextRetryAt: &future,
	}
	resolved := &syncq.SyncError{
		Entity: syncq.NewEntity(), ID: id.NewErrorID(),
		Type: syncq.ErrorTypeNetwork, NextRetryAt: &past, ResolvedAt: &now,
	}

	for _, e := range []*syncq.SyncError{ready, notYet, resolved} {
		if err := s.PutError(ctx, e); err != nil {
			t.Fatalf("PutError: %v", err)
		}
	}

	got, err := s.ListReadyForRetry(ctx, now)
	if err != nil {
		t.Fatalf("ListReadyForRetry: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ready = %d errors, want 1", len(got))
	}
	if got[0].ID != ready.ID {
		t.Errorf("ready error = %s, want %s", got[0].ID, ready.ID)
	}
}

func TestErrorStore_ScopeFilterAndPurge(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	longAgo := time.Now().UTC().Add(-48 * time.Hour)

	inScope := &syncq.SyncError{
		Entity: syncq.NewEntity(), ID: id.NewErrorID(),
		ScopeID: "org_1", Type: syncq.ErrorTypeTimeout,
	}
	outScope := &syncq.SyncError{
		Entity: syncq.NewEntity(), ID: id.NewErrorID(),
		ScopeID: "org_2", Type: syncq.ErrorTypeTimeout,
	}
	oldResolved := &syncq.SyncError{
		Entity: syncq.NewEntity(), ID: id.NewErrorID(),
		ScopeID: "org_1", Type: syncq.ErrorTypeTimeout, ResolvedAt: &longAgo,
	}

	for _, e := range []*syncq.SyncError{inScope, outScope, oldResolved} {
		if err := s.PutError(ctx, e); err != nil {
			t.Fatalf("PutError: %v", err)
		}
	}

	scoped, err := s.ListErrors(ctx, "org_1")
	if err != nil {
		t.Fatalf("ListErrors: %v", err)
	}
	if len(scoped) != 2 {
		t.Errorf("scoped = %d errors, want 2", len(scoped))
	}

	purged, err := s.PurgeResolvedErrors(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeResolvedErrors: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if _, err := s.GetError(ctx, inScope.ID); err != nil {
		t.Errorf("unresolved error purged: %v", err)
	}
}

func TestDLQStore_ListCountPurge(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	longAgo := time.Now().UTC().Add(-48 * time.Hour)

	pending := &dlq.Entry{
		Entity: syncq.NewEntity(), ID: id.NewDLQID(),
		Status: dlq.StatusPending,
	}
	oldResolved := &dlq.Entry{
		Entity: syncq.NewEntity(), ID: id.NewDLQID(),
		Status: dlq.StatusResolved, ProcessedAt: &longAgo,
	}

	for _, e := range []*dlq.Entry{pending, oldResolved} {
		if err := s.PushDLQ(ctx, e); err != nil {
			t.Fatalf("PushDLQ: %v", err)
		}
	}

	pendingOnly, err := s.ListDLQ(ctx, dlq.ListOpts{Status: dlq.StatusPending})
	if err != nil {
		t.Fatalf("ListDLQ: %v", err)
	}
	if len(pendingOnly) != 1 || pendingOnly[0].ID != pending.ID {
		t.Errorf("pending list = %d entries", len(pendingOnly))
	}

	total, err := s.CountDLQ(ctx, "")
	if err != nil {
		t.Fatalf("CountDLQ: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}

	purged, err := s.PurgeDLQ(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeDLQ: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if _, err := s.GetDLQ(ctx, pending.ID); err != nil {
		t.Errorf("pending entry purged: %v", err)
	}
}

func TestStore_CopiesOnReadAndWrite(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	j := newJob("isolate", 0, job.StateWaiting)
	if err := s.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	// Mutating the caller's copy after enqueue must not affect the
	// stored record.
	j.State = job.StateFailed

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.State != job.StateWaiting {
		t.Errorf("stored State = %q, want %q", got.State, job.StateWaiting)
	}

	// Mutating a read result must not affect the store either.
	got.State = job.StateFailed
	again, _ := s.GetJob(ctx, j.ID)
	if again.State != job.StateWaiting {
		t.Errorf("stored State after read mutation = %q, want %q", again.State, job.StateWaiting)
	}
}
