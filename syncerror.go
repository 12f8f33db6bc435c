package syncq

import (
	"time"

	"github.com/xraph/syncq/id"
)

// ErrorType is the semantic classification of a recorded failure.
type ErrorType string

// The error taxonomy. Classification is heuristic (see recovery.Classify):
// rule-based over the raw error's code and message, approximate by design.
const (
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeAuthorization  ErrorType = "authorization"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypePlatform       ErrorType = "platform"
	ErrorTypeDataConflict   ErrorType = "data_conflict"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Resolution is the decided outcome for a classified error.
type Resolution string

const (
	// ResolutionRetry schedules another automatic attempt.
	ResolutionRetry Resolution = "retry"
	// ResolutionSkip drops the work item deliberately.
	ResolutionSkip Resolution = "skip"
	// ResolutionManualFix surfaces the error to an operator; no
	// automatic retry will help.
	ResolutionManualFix Resolution = "manual_fix"
	// ResolutionEscalate parks the error in the dead letter store.
	ResolutionEscalate Resolution = "escalate"
)

// SyncError is a recorded failure, tracked independently of the job
// that raised it. Once ResolvedAt is set the error is immutable.
type SyncError struct {
	Entity

	ID        id.ErrorID `json:"id"`
	JobID     id.JobID   `json:"job_id"`
	JobType   string     `json:"job_type"`
	ScopeID   string     `json:"scope_id"`
	SubjectID string     `json:"subject_id,omitempty"`

	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	Stack   string    `json:"stack,omitempty"`

	// Context carries free-form diagnostic values supplied by the caller.
	Context map[string]any `json:"context,omitempty"`

	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Resolution Resolution `json:"resolution,omitempty"`
}

// Resolved reports whether the error has reached a terminal resolution.
func (e *SyncError) Resolved() bool { return e.ResolvedAt != nil }

// CodedError is an error that carries a structured code in addition to
// its message. Codes take precedence over message sniffing during
// classification, so upstream callers that can supply them should.
type CodedError interface {
	error
	Code() string
}

// Coded wraps an error with a structured classification code.
type codedError struct {
	code string
	err  error
}

// WithCode attaches a structured code to err. The result implements
// CodedError and unwraps to err.
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

func (c *codedError) Error() string { return c.err.Error() }
func (c *codedError) Code() string  { return c.code }
func (c *codedError) Unwrap() error { return c.err }
