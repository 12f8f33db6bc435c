// Package job defines the job entity, state machine, typed definitions,
// processor registry, and store interface.
//
// # Job Entity
//
// A [Job] represents a unit of work. It embeds [syncq.Entity] for
// timestamps, carries an opaque payload (JSON), and progresses through
// a state machine:
//
//	waiting → active → completed
//	waiting → active → waiting|delayed → active → ...   (retry)
//	waiting → active → failed
//	delayed → waiting                                   (wake time elapsed)
//
// A job is in exactly one state at any instant. Completed and failed
// are terminal; the only backward transitions are active → waiting and
// active → delayed on retry.
//
// Fields of note:
//   - Priority: higher values are dispatched first; ties break by
//     enqueue order (stable)
//   - MaxAttempts / Attempts: controls the retry budget
//   - Delay / RunAt: earliest time the job may be dispatched
//   - Timeout: per-job execution deadline (zero = unlimited)
//
// # Defining a Job
//
// Use [Definition] with a typed handler. The payload is JSON-serialized
// at enqueue time and deserialized before the handler runs:
//
//	var PushContact = job.NewDefinition("push_contact",
//	    func(ctx context.Context, j *job.Job, input ContactInput) error {
//	        return crm.Upsert(ctx, input)
//	    },
//	)
//
// # Registry
//
// [Registry] maps job types to type-erased [ProcessorFunc] values.
// At most one processor per type; registering a second overwrites the
// first (last registration wins).
package job
