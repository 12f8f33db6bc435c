package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// TypeLimit defines per-job-type dispatch constraints. The engine
// consults limits after claiming a job; a job that does not fit is
// returned to the waiting set with a short delay instead of executing.
type TypeLimit struct {
	// Type is the job type the limit applies to.
	Type string

	// MaxConcurrency caps the number of simultaneously active jobs of
	// this type. Zero means no type-specific cap.
	MaxConcurrency int

	// RateLimit is the maximum sustained dispatches per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the token-bucket burst size. Defaults to 1 when
	// RateLimit is set and RateBurst is zero.
	RateBurst int
}

// typeState tracks runtime state for one limited job type.
type typeState struct {
	limit   TypeLimit
	limiter *rate.Limiter
	active  int
}

// Limits enforces per-type rate limiting and concurrency. Types not
// configured have no limits. Safe for concurrent use.
type Limits struct {
	mu    sync.Mutex
	types map[string]*typeState
}

// NewLimits creates a limit set from the given configurations.
func NewLimits(limits ...TypeLimit) *Limits {
	l := &Limits{types: make(map[string]*typeState, len(limits))}
	for _, lim := range limits {
		l.types[lim.Type] = newTypeState(lim)
	}
	return l
}

func newTypeState(lim TypeLimit) *typeState {
	ts := &typeState{limit: lim}
	if lim.RateLimit > 0 {
		burst := lim.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(lim.RateLimit), burst)
	}
	return ts
}

// Acquire checks whether a job of the given type may dispatch now. On
// success it increments the type's active count; the caller must call
// Release when execution finishes.
func (l *Limits) Acquire(jobType string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.types[jobType]
	if ts == nil {
		return true
	}
	// Check the concurrency cap before the rate limiter: Allow
	// consumes a token, and a cap rejection must not burn one.
	if ts.limit.MaxConcurrency > 0 && ts.active >= ts.limit.MaxConcurrency {
		return false
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}
	ts.active++
	return true
}

// Release decrements the active count for the given type.
func (l *Limits) Release(jobType string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[jobType]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// SetTypeLimit updates (or creates) the limit for one type, preserving
// the current active count.
func (l *Limits) SetTypeLimit(lim TypeLimit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := newTypeState(lim)
	if existing := l.types[lim.Type]; existing != nil {
		ts.active = existing.active
	}
	l.types[lim.Type] = ts
}

// ActiveCount returns the number of active jobs for a limited type.
func (l *Limits) ActiveCount(jobType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[jobType]; ts != nil {
		return ts.active
	}
	return 0
}
