// Package memory provides a fully in-memory store backing all three
// syncq subsystems (jobs, recorded errors, dead letter entries) behind
// a single mutex. It is the bundled store: durable persistence is the
// host application's problem.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/dlq"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
	"github.com/xraph/syncq/recovery"
)

// Compile-time checks that Store covers every subsystem contract.
var (
	_ job.Store      = (*Store)(nil)
	_ dlq.Store      = (*Store)(nil)
	_ recovery.Store = (*Store)(nil)
)

// Store is a concurrency-safe in-memory implementation of the syncq
// store contracts. All reads return copies so callers can mutate
// results without racing with the store.
type Store struct {
	mu sync.RWMutex

	jobs    map[string]*job.Job
	errors  map[string]*syncq.SyncError
	entries map[string]*dlq.Entry

	// seq preserves enqueue order for priority tie-breaking. Each job
	// gets a sequence number at enqueue time that follows it through
	// delayed parking and retries.
	seq     map[string]uint64
	nextSeq uint64
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*job.Job),
		errors:  make(map[string]*syncq.SyncError),
		entries: make(map[string]*dlq.Entry),
		seq:     make(map[string]uint64),
	}
}

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job store
// ──────────────────────────────────────────────────

// EnqueueJob persists a new job in waiting or delayed state.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return syncq.ErrJobAlreadyExists
	}
	cp := *j
	m.jobs[key] = &cp
	m.nextSeq++
	m.seq[key] = m.nextSeq
	return nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, syncq.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// UpdateJob persists changes to an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, ok := m.jobs[key]; !ok {
		return syncq.ErrJobNotFound
	}
	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = &cp
	return nil
}

// DeleteJob removes a job by ID regardless of state.
func (m *Store) DeleteJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := jobID.String()
	if _, ok := m.jobs[key]; !ok {
		return syncq.ErrJobNotFound
	}
	delete(m.jobs, key)
	delete(m.seq, key)
	return nil
}

// WakeDelayed moves delayed jobs whose RunAt has elapsed into waiting.
func (m *Store) WakeDelayed(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var woken int
	for _, j := range m.jobs {
		if j.State != job.StateDelayed {
			continue
		}
		if j.RunAt.After(now) {
			continue
		}
		j.State = job.StateWaiting
		j.UpdatedAt = now
		woken++
	}
	return woken, nil
}

// ClaimWaiting atomically claims up to limit waiting jobs: priority
// descending, enqueue order ascending within a priority. Claimed jobs
// move to active with Attempts incremented and ProcessedAt set.
func (m *Store) ClaimWaiting(_ context.Context, now time.Time, limit int) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		return nil, nil
	}

	candidates := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.State != job.StateWaiting {
			continue
		}
		candidates = append(candidates, j)
	}

	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return m.seq[candidates[i].ID.String()] < m.seq[candidates[k].ID.String()]
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]*job.Job, len(candidates))
	for i, j := range candidates {
		j.State = job.StateActive
		j.Attempts++
		n := now
		j.ProcessedAt = &n
		j.UpdatedAt = now
		cp := *j
		result[i] = &cp
	}
	return result, nil
}

// ListJobsByState returns jobs in the given state, oldest first.
func (m *Store) ListJobsByState(_ context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.State != state {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return m.seq[result[i].ID.String()] < m.seq[result[k].ID.String()]
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// CountByState returns the number of jobs in each state.
func (m *Store) CountByState(_ context.Context) (map[job.State]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[job.State]int64, len(job.States))
	for _, s := range job.States {
		counts[s] = 0
	}
	for _, j := range m.jobs {
		counts[j.State]++
	}
	return counts, nil
}

// ResetFailed moves failed jobs back to waiting with attempts, error,
// and delay cleared. An empty ids slice resets every failed job.
func (m *Store) ResetFailed(_ context.Context, ids []id.JobID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, jid := range ids {
		wanted[jid.String()] = struct{}{}
	}

	now := time.Now().UTC()
	var reset int
	for key, j := range m.jobs {
		if j.State != job.StateFailed {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[key]; !ok {
				continue
			}
		}
		j.State = job.StateWaiting
		j.Attempts = 0
		j.LastError = ""
		j.Delay = 0
		j.RunAt = now
		j.FailedAt = nil
		j.UpdatedAt = now
		reset++
	}
	return reset, nil
}

// PurgeTerminal removes completed and failed jobs whose terminal
// timestamp is before the cutoff, at most limit per call.
func (m *Store) PurgeTerminal(_ context.Context, before time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int
	for key, j := range m.jobs {
		if limit > 0 && purged >= limit {
			break
		}
		var terminal *time.Time
		switch j.State {
		case job.StateCompleted:
			terminal = j.CompletedAt
		case job.StateFailed:
			terminal = j.FailedAt
		default:
			continue
		}
		if terminal == nil || !terminal.Before(before) {
			continue
		}
		delete(m.jobs, key)
		delete(m.seq, key)
		purged++
	}
	return purged, nil
}

// ──────────────────────────────────────────────────
// Error store
// ──────────────────────────────────────────────────

// PutError inserts a newly recorded error.
func (m *Store) PutError(_ context.Context, serr *syncq.SyncError) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *serr
	m.errors[serr.ID.String()] = &cp
	return nil
}

// GetError retrieves a recorded error by ID.
func (m *Store) GetError(_ context.Context, errID id.ErrorID) (*syncq.SyncError, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.errors[errID.String()]
	if !ok {
		return nil, syncq.ErrErrorNotFound
	}
	cp := *e
	return &cp, nil
}

// UpdateError persists changes to a recorded error.
func (m *Store) UpdateError(_ context.Context, serr *syncq.SyncError) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := serr.ID.String()
	if _, ok := m.errors[key]; !ok {
		return syncq.ErrErrorNotFound
	}
	cp := *serr
	cp.UpdatedAt = time.Now().UTC()
	m.errors[key] = &cp
	return nil
}

// ListReadyForRetry returns unresolved errors whose NextRetryAt has
// arrived, oldest retry time first.
func (m *Store) ListReadyForRetry(_ context.Context, now time.Time) ([]*syncq.SyncError, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ready []*syncq.SyncError
	for _, e := range m.errors {
		if e.Resolved() {
			continue
		}
		if e.NextRetryAt == nil || e.NextRetryAt.After(now) {
			continue
		}
		cp := *e
		ready = append(ready, &cp)
	}

	sort.Slice(ready, func(i, k int) bool {
		return ready[i].NextRetryAt.Before(*ready[k].NextRetryAt)
	})
	return ready, nil
}

// ListErrors returns all recorded errors, optionally filtered by
// scope, oldest first.
func (m *Store) ListErrors(_ context.Context, scopeID string) ([]*syncq.SyncError, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*syncq.SyncError, 0, len(m.errors))
	for _, e := range m.errors {
		if scopeID != "" && e.ScopeID != scopeID {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	return result, nil
}

// PurgeResolvedErrors deletes resolved errors resolved before the
// cutoff.
func (m *Store) PurgeResolvedErrors(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int
	for key, e := range m.errors {
		if e.ResolvedAt == nil || !e.ResolvedAt.Before(before) {
			continue
		}
		delete(m.errors, key)
		purged++
	}
	return purged, nil
}

// ──────────────────────────────────────────────────
// Dead letter store
// ──────────────────────────────────────────────────

// PushDLQ adds an entry to the dead letter store.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.entries[entry.ID.String()] = &cp
	return nil
}

// GetDLQ retrieves a dead letter entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[entryID.String()]
	if !ok {
		return nil, syncq.ErrDLQNotFound
	}
	cp := *e
	return &cp, nil
}

// UpdateDLQ persists changes to a dead letter entry.
func (m *Store) UpdateDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := entry.ID.String()
	if _, ok := m.entries[key]; !ok {
		return syncq.ErrDLQNotFound
	}
	cp := *entry
	cp.UpdatedAt = time.Now().UTC()
	m.entries[key] = &cp
	return nil
}

// ListDLQ returns entries matching the given options, oldest first.
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if opts.Status != "" && e.Status != opts.Status {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// PurgeDLQ removes resolved entries processed before the cutoff.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int
	for key, e := range m.entries {
		if e.Status != dlq.StatusResolved {
			continue
		}
		if e.ProcessedAt == nil || !e.ProcessedAt.Before(before) {
			continue
		}
		delete(m.entries, key)
		purged++
	}
	return purged, nil
}

// CountDLQ returns the number of entries with the given status. An
// empty status counts everything.
func (m *Store) CountDLQ(_ context.Context, status dlq.Status) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if status == "" {
		return int64(len(m.entries)), nil
	}
	var count int64
	for _, e := range m.entries {
		if e.Status == status {
			count++
		}
	}
	return count, nil
}
