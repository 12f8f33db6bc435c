// Package syncq provides a resilient, in-process job execution core:
// a priority- and delay-aware queue engine paired with an error
// classification and recovery layer that parks terminally-failing work
// in a dead letter store.
//
// Syncq is designed as a library, not a service. Import it, register
// processors as ordinary Go functions, and enqueue work. Delivery is
// at-least-once with idempotent-friendly retries; state is held in
// memory for the lifetime of the process.
//
// # Quick Start
//
//	cfg := syncq.DefaultConfig()
//	cfg.Concurrency = 8
//
//	eng, err := engine.Build(engine.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng.RegisterProcessor("sync.contact", func(ctx context.Context, j *job.Job) error {
//	    return pushContact(ctx, j.Payload)
//	})
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop(ctx)
//
//	_, err = eng.EnqueueRaw(ctx, "sync.contact", payload, job.WithPriority(5))
//
// # Architecture
//
// Each subsystem (job, dlq, recovery) defines its own store interface
// and a single in-memory backend implements all of them. The queue
// engine advances on a periodic tick: it wakes elapsed delayed jobs,
// claims waiting jobs in stable priority order up to the concurrency
// bound, and executes each through a middleware chain. Failures may
// additionally be reported to the recovery manager, which classifies
// them, applies a per-type retry policy with jitter, and escalates
// exhausted errors to the dead letter store.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package syncq
