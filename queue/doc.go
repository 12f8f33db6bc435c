// Package queue implements the job queue engine: a tick-driven
// dispatch loop over an in-memory (or host-provided) job store.
//
// Each tick the engine wakes delayed jobs whose time has come, then
// claims waiting jobs up to the free concurrency budget, ordered by
// priority (descending) with ties broken by enqueue order. Claimed
// jobs execute asynchronously, each in its own goroutine, through the
// configured middleware chain.
//
// Failure handling at this layer is mechanical: a processor returning
// an error is the only failure signal. Attempts below MaxAttempts are
// re-scheduled with exponential backoff; the final failure is terminal
// and, when a failure reporter is wired, handed to the recovery layer
// for classification. The engine itself never inspects errors.
//
// Pause stops claiming without touching in-flight jobs. Stop pauses,
// halts the ticker, and polls until the active set is empty or the
// shutdown budget runs out. Drain additionally waits for waiting and
// delayed jobs.
package queue
