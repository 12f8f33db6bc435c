package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ProcessorFunc handles one job attempt. Returning a non-nil error is
// the only failure signal; the error's message and code feed
// classification when the failure is reported to the recovery layer.
type ProcessorFunc func(ctx context.Context, j *Job) error

// Registry maps job types to type-erased processor functions.
// It is safe for concurrent use.
//
// At most one processor per type: registering a second processor for
// the same type silently overwrites the first. Last registration wins.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]ProcessorFunc
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[string]ProcessorFunc),
	}
}

// Register binds a processor to a job type, replacing any previous one.
func (r *Registry) Register(jobType string, p ProcessorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[jobType] = p
}

// RegisterDefinition registers a typed job definition. The generic
// handler is wrapped in a closure that JSON-unmarshals the payload into
// T before calling the typed handler.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func RegisterDefinition[T any](r *Registry, def *Definition[T]) {
	r.Register(def.Type, func(ctx context.Context, j *Job) error {
		var t T
		if len(j.Payload) > 0 {
			if err := json.Unmarshal(j.Payload, &t); err != nil {
				return fmt.Errorf("unmarshal payload for job %q: %w", def.Type, err)
			}
		}
		return def.Handler(ctx, j, t)
	})
}

// Get returns the processor for the given job type.
// Returns false if no processor is registered.
func (r *Registry) Get(jobType string) (ProcessorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[jobType]
	return p, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	return types
}
