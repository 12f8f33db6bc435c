package syncq

import "time"

// Config holds configuration for the queue engine and recovery layer.
type Config struct {
	// Concurrency is the maximum number of jobs active at once.
	Concurrency int

	// TickInterval is how often the dispatch loop runs. The loop is
	// periodic, never busy-spinning; a coarser tick trades latency for
	// less wakeup pressure in interactive or low-resource hosts.
	TickInterval time.Duration

	// DrainPollInterval is how often Stop and Drain re-check the active
	// set while waiting for it to empty.
	DrainPollInterval time.Duration

	// ShutdownTimeout is the maximum time Stop waits for active jobs.
	ShutdownTimeout time.Duration

	// RetryPollInterval is how often the recovery poller re-submits
	// errors that are ready for retry.
	RetryPollInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       10,
		TickInterval:      200 * time.Millisecond,
		DrainPollInterval: 20 * time.Millisecond,
		ShutdownTimeout:   30 * time.Second,
		RetryPollInterval: time.Second,
	}
}

// InteractiveConfig returns a Config tuned for interactive hosts: a
// coarser tick and a single-digit concurrency bound.
func InteractiveConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Second
	cfg.Concurrency = 4
	return cfg
}
