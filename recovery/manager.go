package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/dlq"
	"github.com/xraph/syncq/hook"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
)

// ResolutionHandler overrides the built-in policy decision for one
// error type. It sees the error after classification (and after the
// retry counter has been advanced, when called from RetryError) and
// returns the resolution to apply.
type ResolutionHandler func(serr *syncq.SyncError) syncq.Resolution

// RecordOption customizes a RecordError call.
type RecordOption func(*syncq.SyncError)

// WithContext attaches arbitrary key/value context to the recorded
// error, for operator triage.
func WithContext(kv map[string]any) RecordOption {
	return func(serr *syncq.SyncError) { serr.Context = kv }
}

// WithSubject tags the error with the external subject it concerns.
func WithSubject(subjectID string) RecordOption {
	return func(serr *syncq.SyncError) { serr.SubjectID = subjectID }
}

// WithStack attaches a captured stack trace.
func WithStack(stack string) RecordOption {
	return func(serr *syncq.SyncError) { serr.Stack = stack }
}

// Manager records failures, decides their fate, and owns the dead
// letter flow. It is safe for concurrent use.
type Manager struct {
	store  Store
	dlq    *dlq.Service
	hooks  *hook.Registry
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[syncq.ErrorType]ResolutionHandler
}

// NewManager creates a recovery manager on top of the given error
// store and dead letter service.
func NewManager(store Store, dlqSvc *dlq.Service, hooks *hook.Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		dlq:      dlqSvc,
		hooks:    hooks,
		logger:   logger,
		handlers: make(map[syncq.ErrorType]ResolutionHandler),
	}
}

// RegisterHandler installs a custom resolution handler for one error
// type, replacing any previous handler for that type.
func (m *Manager) RegisterHandler(t syncq.ErrorType, h ResolutionHandler) {
	m.mu.Lock()
	m.handlers[t] = h
	m.mu.Unlock()
}

func (m *Manager) resolutionFor(serr *syncq.SyncError) syncq.Resolution {
	m.mu.RLock()
	h := m.handlers[serr.Type]
	m.mu.RUnlock()
	if h != nil {
		return h(serr)
	}
	return defaultResolution(serr)
}

// RecordError classifies cause, applies the per-type policy, persists
// the resulting SyncError, and returns it. A Retry decision schedules
// the first retry via the type's backoff; an Escalate decision (only
// reachable through a custom handler at record time) parks the error
// in the dead letter store immediately.
func (m *Manager) RecordError(ctx context.Context, jobID id.JobID, jobType, scopeID string, cause error, opts ...RecordOption) (*syncq.SyncError, error) {
	etype, code := Classify(cause)
	pol := PolicyFor(etype)

	serr := &syncq.SyncError{
		Entity:     syncq.NewEntity(),
		ID:         id.NewErrorID(),
		JobID:      jobID,
		JobType:    jobType,
		ScopeID:    scopeID,
		Type:       etype,
		Code:       code,
		Message:    cause.Error(),
		MaxRetries: pol.MaxRetries,
	}
	for _, opt := range opts {
		opt(serr)
	}

	serr.Resolution = m.resolutionFor(serr)
	if serr.Resolution == syncq.ResolutionRetry && pol.Backoff != nil {
		next := time.Now().Add(pol.Backoff.Delay(1))
		serr.NextRetryAt = &next
	}

	if err := m.store.PutError(ctx, serr); err != nil {
		return nil, fmt.Errorf("record error: %w", err)
	}

	m.logger.Info("error recorded",
		slog.String("error_id", serr.ID.String()),
		slog.String("job_id", jobID.String()),
		slog.String("job_type", jobType),
		slog.String("type", string(etype)),
		slog.String("resolution", string(serr.Resolution)),
	)
	if m.hooks != nil {
		m.hooks.EmitErrorRecorded(ctx, serr)
	}

	if serr.Resolution == syncq.ResolutionEscalate {
		if err := m.escalate(ctx, serr); err != nil {
			return serr, err
		}
	}
	return serr, nil
}

// RetryError advances the retry counter for an error and reports
// whether another retry was scheduled. When the budget is exhausted, or
// the recomputed resolution is Escalate, the error migrates to the dead
// letter store and RetryError returns false. A non-retry resolution
// short of escalation (manual fix, skip) also returns false, leaving
// the error for an operator.
func (m *Manager) RetryError(ctx context.Context, errID id.ErrorID) (bool, error) {
	serr, err := m.store.GetError(ctx, errID)
	if err != nil {
		return false, err
	}
	if serr.Resolved() {
		return false, syncq.ErrErrorResolved
	}

	serr.RetryCount++
	serr.UpdatedAt = time.Now()
	res := m.resolutionFor(serr)

	if res == syncq.ResolutionEscalate || (serr.RetryCount >= serr.MaxRetries && res == syncq.ResolutionRetry) {
		serr.Resolution = syncq.ResolutionEscalate
		serr.NextRetryAt = nil
		if err := m.store.UpdateError(ctx, serr); err != nil {
			return false, err
		}
		return false, m.escalate(ctx, serr)
	}

	serr.Resolution = res
	serr.NextRetryAt = nil
	if res == syncq.ResolutionRetry {
		// A custom handler can force Retry on a type whose policy has
		// no schedule (authentication, validation). The retry is still
		// granted; it just stays unscheduled, like at record time.
		if pol := PolicyFor(serr.Type); pol.Backoff != nil {
			next := time.Now().Add(pol.Backoff.Delay(serr.RetryCount + 1))
			serr.NextRetryAt = &next
		}
	}
	if err := m.store.UpdateError(ctx, serr); err != nil {
		return false, err
	}

	m.logger.Info("error retry decided",
		slog.String("error_id", serr.ID.String()),
		slog.Int("retry_count", serr.RetryCount),
		slog.String("resolution", string(res)),
	)
	return res == syncq.ResolutionRetry, nil
}

// escalate parks serr in the dead letter store.
func (m *Manager) escalate(ctx context.Context, serr *syncq.SyncError) error {
	entry, err := m.dlq.Push(ctx, serr)
	if err != nil {
		return fmt.Errorf("escalate error %s: %w", serr.ID, err)
	}
	m.logger.Warn("error escalated to dead letter store",
		slog.String("error_id", serr.ID.String()),
		slog.String("entry_id", entry.ID.String()),
		slog.String("job_id", serr.JobID.String()),
	)
	if m.hooks != nil {
		m.hooks.EmitErrorEscalated(ctx, serr, entry.ID)
	}
	return nil
}

// ResolveError marks an error resolved with the given resolution.
// Resolving an already-resolved error is a no-op.
func (m *Manager) ResolveError(ctx context.Context, errID id.ErrorID, resolution syncq.Resolution) error {
	serr, err := m.store.GetError(ctx, errID)
	if err != nil {
		return err
	}
	if serr.Resolved() {
		return nil
	}

	now := time.Now()
	serr.ResolvedAt = &now
	serr.Resolution = resolution
	serr.NextRetryAt = nil
	serr.UpdatedAt = now
	if err := m.store.UpdateError(ctx, serr); err != nil {
		return err
	}

	m.logger.Info("error resolved",
		slog.String("error_id", serr.ID.String()),
		slog.String("resolution", string(resolution)),
	)
	if m.hooks != nil {
		m.hooks.EmitErrorResolved(ctx, serr)
	}
	return nil
}

// ResolveErrorsForJob resolves every outstanding error attached to the
// given job. The engine calls this when a job completes so a recovered
// failure does not keep burning its retry budget in the poller and end
// up dead-lettered anyway. Returns the number of errors resolved.
func (m *Manager) ResolveErrorsForJob(ctx context.Context, jobID id.JobID) (int, error) {
	if jobID.IsNil() {
		return 0, nil
	}
	errs, err := m.store.ListErrors(ctx, "")
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, serr := range errs {
		if serr.Resolved() || serr.JobID.String() != jobID.String() {
			continue
		}
		if err := m.ResolveError(ctx, serr.ID, syncq.ResolutionRetry); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// GetError returns one recorded error by ID.
func (m *Manager) GetError(ctx context.Context, errID id.ErrorID) (*syncq.SyncError, error) {
	return m.store.GetError(ctx, errID)
}

// ErrorsReadyForRetry returns unresolved errors whose next retry time
// has arrived.
func (m *Manager) ErrorsReadyForRetry(ctx context.Context) ([]*syncq.SyncError, error) {
	return m.store.ListReadyForRetry(ctx, time.Now())
}

// ProcessDLQItem runs one dead letter entry through the reprocessor.
// On success the linked error is resolved as retried and a resolved
// event is emitted; on a terminal failure (the entry exhausted its
// attempts and was abandoned) an abandoned event is emitted.
func (m *Manager) ProcessDLQItem(ctx context.Context, entryID id.DLQID) (bool, error) {
	ok, err := m.dlq.Process(ctx, entryID)
	if err != nil {
		return false, err
	}
	if ok {
		if rerr := m.ResolveError(ctx, m.entryErrorID(ctx, entryID), syncq.ResolutionRetry); rerr != nil {
			m.logger.Warn("resolve linked error failed",
				slog.String("entry_id", entryID.String()),
				slog.String("error", rerr.Error()),
			)
		}
		if m.hooks != nil {
			m.hooks.EmitDLQResolved(ctx, entryID)
		}
		return true, nil
	}

	entry, gerr := m.dlq.DLQStore().GetDLQ(ctx, entryID)
	if gerr == nil && entry.Status == dlq.StatusAbandoned && m.hooks != nil {
		m.hooks.EmitDLQAbandoned(ctx, entryID)
	}
	return false, nil
}

// AbandonDLQItem gives up on a dead letter entry permanently.
func (m *Manager) AbandonDLQItem(ctx context.Context, entryID id.DLQID) error {
	if err := m.dlq.Abandon(ctx, entryID); err != nil {
		return err
	}
	if m.hooks != nil {
		m.hooks.EmitDLQAbandoned(ctx, entryID)
	}
	return nil
}

// DLQ exposes the dead letter service for operator surfaces.
func (m *Manager) DLQ() *dlq.Service { return m.dlq }

func (m *Manager) entryErrorID(ctx context.Context, entryID id.DLQID) id.ErrorID {
	entry, err := m.dlq.DLQStore().GetDLQ(ctx, entryID)
	if err != nil {
		return id.Nil
	}
	return entry.Error.ID
}

// Stats summarizes the recorded error population.
type Stats struct {
	TotalErrors       int                      `json:"totalErrors"`
	ByType            map[syncq.ErrorType]int  `json:"errorsByType"`
	ByResolution      map[syncq.Resolution]int `json:"errorsByResolution"`
	RetrySuccessRate  float64                  `json:"retrySuccessRate"`
	DLQSize           int64                    `json:"dlqSize"`
	AverageRetryCount float64                  `json:"averageRetryCount"`
}

// GetStats aggregates error counts, optionally restricted to one
// scope. RetrySuccessRate is the fraction of errors that consumed at
// least one retry and ended resolved.
func (m *Manager) GetStats(ctx context.Context, scopeID string) (*Stats, error) {
	errs, err := m.store.ListErrors(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalErrors:  len(errs),
		ByType:       make(map[syncq.ErrorType]int),
		ByResolution: make(map[syncq.Resolution]int),
	}
	var retried, retriedResolved, totalRetries int
	for _, e := range errs {
		st.ByType[e.Type]++
		st.ByResolution[e.Resolution]++
		totalRetries += e.RetryCount
		if e.RetryCount > 0 {
			retried++
			if e.Resolved() {
				retriedResolved++
			}
		}
	}
	if retried > 0 {
		st.RetrySuccessRate = float64(retriedResolved) / float64(retried)
	}
	if len(errs) > 0 {
		st.AverageRetryCount = float64(totalRetries) / float64(len(errs))
	}

	size, err := m.dlq.DLQStore().CountDLQ(ctx, "")
	if err != nil {
		return nil, err
	}
	st.DLQSize = size
	return st, nil
}

// Cleanup purges resolved errors and resolved dead letter entries older
// than the given age. It returns the total number of records removed.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	purgedErrs, err := m.store.PurgeResolvedErrors(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	purgedEntries, err := m.dlq.DLQStore().PurgeDLQ(ctx, cutoff)
	if err != nil {
		return purgedErrs, err
	}
	if purgedErrs+purgedEntries > 0 {
		m.logger.Info("recovery cleanup",
			slog.Int("errors_purged", purgedErrs),
			slog.Int("dlq_purged", purgedEntries),
		)
	}
	return purgedErrs + purgedEntries, nil
}

// ReportFailure records a terminal queue failure against the recovery
// manager. It satisfies the queue engine's failure reporter.
func (m *Manager) ReportFailure(ctx context.Context, j *job.Job, cause error) {
	_, err := m.RecordError(ctx, j.ID, j.Type, j.ScopeID, cause, WithSubject(j.SubjectID))
	if err != nil {
		m.logger.Error("report failure",
			slog.String("job_id", j.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
