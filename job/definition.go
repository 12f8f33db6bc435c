package job

import "context"

// Definition is a typed job definition with a handler function.
// T is the payload type (must be JSON-serializable).
type Definition[T any] struct {
	// Type is the unique identifier for this kind of job.
	Type string

	// Handler processes one attempt. It receives the job record for
	// access to attempt counts and scope, plus the decoded payload.
	Handler func(ctx context.Context, j *Job, payload T) error

	// Opts configures priority, delay, attempts, and timeout defaults.
	Opts Options
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](jobType string, handler func(ctx context.Context, j *Job, payload T) error, opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Type:    jobType,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}
