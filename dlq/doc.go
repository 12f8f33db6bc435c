// Package dlq provides the dead letter store for work that has
// exhausted retry policy. It supports operator-driven reprocessing,
// replay, abandonment, and purging.
//
// When the recovery manager escalates a classified error, it pushes an
// [Entry] here. The embedded sync error and the original job record are
// preserved for debugging.
//
// # Entry
//
// An [Entry] captures:
//   - OriginalJobID: the job whose failure was escalated
//   - Error: the full classified sync error
//   - Attempts: reprocessing attempts made from the store, distinct
//     from the original job's attempt count
//   - Status: Pending → Processing → {Resolved, Pending, Abandoned}
//
// An entry is retried from the store at most [DefaultMaxAttempts]
// times before it is abandoned.
//
// # Service
//
// [Service] wraps the store with high-level operations:
//
//	svc := dlq.NewService(store, jobStore, reprocess)
//
//	// Run one entry through the reprocessor.
//	ok, err := svc.Process(ctx, entryID)
//
//	// Re-enqueue the original work as a fresh job.
//	j, err := svc.Replay(ctx, entryID)
//
//	// Give up on an entry.
//	err := svc.Abandon(ctx, entryID)
package dlq
