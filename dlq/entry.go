package dlq

import (
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
)

// DefaultMaxAttempts is the reprocessing budget for a dead letter
// entry. An entry that fails this many reprocessing attempts is
// abandoned rather than retried forever.
const DefaultMaxAttempts = 3

// Status is the lifecycle state of a dead letter entry.
type Status string

const (
	// StatusPending means the entry awaits operator action.
	StatusPending Status = "pending"
	// StatusProcessing means a reprocessing attempt is in flight.
	StatusProcessing Status = "processing"
	// StatusResolved means a reprocessing attempt succeeded.
	StatusResolved Status = "resolved"
	// StatusAbandoned means the entry exhausted its reprocessing
	// budget or was explicitly given up on.
	StatusAbandoned Status = "abandoned"
)

// Entry represents a terminally-failing unit of work parked for
// operator-driven reprocessing or abandonment.
//
// Valid transitions: Pending → Processing → Resolved, Processing →
// Pending (failed attempt with budget left), Processing → Abandoned
// (budget exhausted). Only the recovery manager and the Service mutate
// entries.
type Entry struct {
	syncq.Entity

	ID            id.DLQID        `json:"id"`
	OriginalJobID id.JobID        `json:"original_job_id"`
	Error         syncq.SyncError `json:"error"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	Status        Status          `json:"status"`
}
