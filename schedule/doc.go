// Package schedule enqueues jobs on recurring cron schedules.
//
// A Scheduler holds named entries, each pairing a cron expression with
// a job type and payload. A tick loop fires entries whose next run time
// has arrived by handing them to an EnqueueFunc; the queue engine's
// Enqueue satisfies that contract. Scheduling is single-process: an
// entry fires at most once per due time within one Scheduler, and
// recurrence state is lost on restart along with the rest of the
// in-memory queue.
//
// Standard five-field cron expressions and descriptors such as
// "@every 30s" or "@hourly" are accepted.
package schedule
