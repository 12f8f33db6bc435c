package job

import (
	"time"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/id"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StateWaiting means the job is eligible for dispatch on the next tick.
	StateWaiting State = "waiting"
	// StateDelayed means the job is parked until its RunAt time elapses.
	StateDelayed State = "delayed"
	// StateActive means a processor is currently executing the job.
	StateActive State = "active"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the job exhausted its attempts and will not run again.
	StateFailed State = "failed"
)

// States lists all job states in lifecycle order.
var States = []State{StateWaiting, StateDelayed, StateActive, StateCompleted, StateFailed}

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Job represents a unit of work dispatched by the queue engine.
type Job struct {
	syncq.Entity

	ID          id.JobID      `json:"id"`
	Type        string        `json:"type"`
	Payload     []byte        `json:"payload"`
	State       State         `json:"state"`
	Priority    int           `json:"priority"`
	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"max_attempts"`
	Delay       time.Duration `json:"delay,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	ScopeID     string        `json:"scope_id,omitempty"`
	SubjectID   string        `json:"subject_id,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`

	// RunAt is the earliest instant the job may be dispatched. For a
	// delayed job it is the wake time; retries with backoff push it out.
	RunAt       time.Time  `json:"run_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
}
