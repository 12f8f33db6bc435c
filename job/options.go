package job

import "time"

// Options configures per-job behavior such as priority, delay, and the
// attempt budget.
type Options struct {
	// Priority determines dispatch ordering. Higher values run first;
	// ties break by enqueue order.
	Priority int

	// Delay is how long to wait before the job first becomes eligible.
	Delay time.Duration

	// MaxAttempts is the total number of executions allowed before the
	// job is marked failed.
	MaxAttempts int

	// Timeout is the maximum duration a single attempt may run before
	// its context is cancelled. Zero means unlimited.
	Timeout time.Duration

	// ScopeID identifies the tenant or owner the job belongs to. It is
	// carried into recovery reporting.
	ScopeID string

	// SubjectID identifies the specific external resource the job acts
	// on, when there is one.
	SubjectID string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Priority:    0,
		Delay:       0,
		MaxAttempts: 3,
	}
}

// Option is a functional option for configuring a job.
type Option func(*Options)

// WithPriority sets the job priority. Higher values are dispatched first.
func WithPriority(p int) Option {
	return func(o *Options) {
		o.Priority = p
	}
}

// WithDelay defers the job's first eligibility by d.
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Delay = d
	}
}

// WithMaxAttempts sets the total execution budget for the job.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

// WithTimeout sets the maximum execution duration per attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithScope tags the job with the tenant or owner it belongs to.
func WithScope(scopeID string) Option {
	return func(o *Options) {
		o.ScopeID = scopeID
	}
}

// WithSubject tags the job with the external resource it acts on.
func WithSubject(subjectID string) Option {
	return func(o *Options) {
		o.SubjectID = subjectID
	}
}
