package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
)

// Reprocessor executes the original work for a dead letter entry.
// A nil return marks the attempt successful.
type Reprocessor func(ctx context.Context, original *job.Job) error

// Service provides high-level dead letter operations over a Store.
type Service struct {
	store    Store
	jobStore job.Store
	rp       Reprocessor
	logger   *slog.Logger
}

// NewService creates a dead letter service. The reprocessor is invoked
// by Process to re-run the original job in place.
func NewService(store Store, jobStore job.Store, rp Reprocessor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, jobStore: jobStore, rp: rp, logger: logger}
}

// Push builds a pending Entry from an escalated sync error and
// persists it.
func (s *Service) Push(ctx context.Context, serr *syncq.SyncError) (*Entry, error) {
	entry := &Entry{
		Entity:        syncq.NewEntity(),
		ID:            id.NewDLQID(),
		OriginalJobID: serr.JobID,
		Error:         *serr,
		Status:        StatusPending,
	}
	if err := s.store.PushDLQ(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Warn("error escalated to dead letter store",
		slog.String("entry_id", entry.ID.String()),
		slog.String("job_id", serr.JobID.String()),
		slog.String("job_type", serr.JobType),
		slog.String("error_type", string(serr.Type)),
	)

	return entry, nil
}

// Process runs one reprocessing attempt for a pending entry. On
// success the entry becomes resolved and Process returns true. On
// failure the entry reverts to pending, or becomes abandoned once its
// attempt budget is spent, and Process returns false.
func (s *Service) Process(ctx context.Context, entryID id.DLQID) (bool, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return false, err
	}
	if entry.Status != StatusPending {
		return false, fmt.Errorf("process dlq entry %s in status %q: %w", entryID, entry.Status, syncq.ErrInvalidState)
	}

	now := time.Now().UTC()
	entry.Status = StatusProcessing
	entry.Attempts++
	entry.LastAttemptAt = &now
	if err := s.store.UpdateDLQ(ctx, entry); err != nil {
		return false, err
	}

	original, err := s.jobStore.GetJob(ctx, entry.OriginalJobID)
	if err != nil {
		// The original job record is gone (cleaned). Nothing to re-run.
		s.failAttempt(ctx, entry)
		return false, fmt.Errorf("load original job for dlq entry %s: %w", entryID, err)
	}

	if rpErr := s.rp(ctx, original); rpErr != nil {
		s.failAttempt(ctx, entry)
		s.logger.Warn("dlq reprocessing attempt failed",
			slog.String("entry_id", entry.ID.String()),
			slog.Int("attempt", entry.Attempts),
			slog.String("error", rpErr.Error()),
		)
		return false, nil
	}

	entry.Status = StatusResolved
	entry.ProcessedAt = &now
	if err := s.store.UpdateDLQ(ctx, entry); err != nil {
		return false, err
	}

	s.logger.Info("dlq entry resolved",
		slog.String("entry_id", entry.ID.String()),
		slog.String("job_type", entry.Error.JobType),
		slog.Int("attempts", entry.Attempts),
	)

	return true, nil
}

// failAttempt reverts a processing entry to pending, or abandons it
// once the attempt budget is exhausted.
func (s *Service) failAttempt(ctx context.Context, entry *Entry) {
	if entry.Attempts >= DefaultMaxAttempts {
		entry.Status = StatusAbandoned
	} else {
		entry.Status = StatusPending
	}
	if err := s.store.UpdateDLQ(ctx, entry); err != nil {
		s.logger.Error("failed to update dlq entry after attempt",
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Abandon marks an entry abandoned regardless of remaining budget.
// Resolved entries cannot be abandoned.
func (s *Service) Abandon(ctx context.Context, entryID id.DLQID) error {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Status == StatusResolved {
		return fmt.Errorf("abandon resolved dlq entry %s: %w", entryID, syncq.ErrInvalidState)
	}
	entry.Status = StatusAbandoned
	return s.store.UpdateDLQ(ctx, entry)
}

// Replay re-enqueues a dead letter entry's original work as a fresh
// waiting job with a clean attempt budget. The entry itself is left
// untouched; use Process or Abandon to retire it.
func (s *Service) Replay(ctx context.Context, entryID id.DLQID) (*job.Job, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}

	original, err := s.jobStore.GetJob(ctx, entry.OriginalJobID)
	if err != nil {
		return nil, fmt.Errorf("load original job for dlq entry %s: %w", entryID, err)
	}

	j := &job.Job{
		Entity:      syncq.NewEntity(),
		ID:          id.NewJobID(),
		Type:        original.Type,
		Payload:     original.Payload,
		State:       job.StateWaiting,
		Priority:    original.Priority,
		MaxAttempts: original.MaxAttempts,
		ScopeID:     original.ScopeID,
		SubjectID:   original.SubjectID,
		Timeout:     original.Timeout,
		RunAt:       time.Now().UTC(),
	}
	if err := s.jobStore.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}

	return j, nil
}

// ProcessPending runs reprocessing attempts for up to limit pending
// entries, at most concurrency at a time. Returns the number of
// entries resolved.
func (s *Service) ProcessPending(ctx context.Context, limit, concurrency int) (int, error) {
	entries, err := s.store.ListDLQ(ctx, ListOpts{Status: StatusPending, Limit: limit})
	if err != nil {
		return 0, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var resolved int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make(chan bool, len(entries))
	for _, entry := range entries {
		g.Go(func() error {
			ok, perr := s.Process(gctx, entry.ID)
			if perr != nil {
				return perr
			}
			results <- ok
			return nil
		})
	}

	err = g.Wait()
	close(results)
	for ok := range results {
		if ok {
			resolved++
		}
	}
	return int(resolved), err
}

// DLQStore returns the underlying store for direct access to list,
// count, and purge operations.
func (s *Service) DLQStore() Store {
	return s.store
}
