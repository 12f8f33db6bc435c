package syncq

import "errors"

var (
	// Not found errors.
	ErrJobNotFound   = errors.New("syncq: job not found")
	ErrErrorNotFound = errors.New("syncq: sync error not found")
	ErrDLQNotFound   = errors.New("syncq: dlq entry not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("syncq: job already exists")

	// State errors.
	ErrJobActive          = errors.New("syncq: job is active and cannot be removed")
	ErrInvalidState       = errors.New("syncq: invalid state transition")
	ErrErrorResolved      = errors.New("syncq: sync error already resolved")
	ErrMaxRetriesExceeded = errors.New("syncq: max retries exceeded")

	// Configuration errors.
	ErrNoProcessor = errors.New("syncq: no processor registered for job type")
	ErrTypeEmpty   = errors.New("syncq: job type is required")

	// Lifecycle errors.
	ErrEngineStopped = errors.New("syncq: engine stopped")
	ErrDrainTimeout  = errors.New("syncq: drain deadline exceeded")
)
