// Package recovery turns ad-hoc processor failures into classified,
// policy-driven decisions, and parks unrecoverable ones in the dead
// letter store.
//
// # Classification
//
// [Classify] maps a raw error to one of nine semantic types using an
// ordered rule list over the error's structured code (when the error
// implements [syncq.CodedError]) and its message. Matching is
// best-effort heuristic: a validation message that happens to contain
// the word "timeout" will be misclassified. Callers that can supply
// structured codes via [syncq.WithCode] should, since codes are
// checked before message sniffing.
//
// # Policy
//
// Each error type carries a retry budget and a backoff strategy
// (exponential or linear, with ±10% jitter where enabled). Transient
// types (network, timeout, rate limit, platform, unknown) retry until
// the budget is exhausted and then escalate to the dead letter store.
// Permanent types (validation, authentication) resolve to manual fix
// immediately; authorization and data conflicts retry a bounded number
// of times before turning into manual fixes.
//
// # Manager
//
// [Manager] owns the recorded error set and the dead letter store.
// RecordError classifies and decides; RetryError advances the retry
// counter and escalates on exhaustion; ErrorsReadyForRetry feeds an
// external scheduler ([Poller] by default) that re-submits work to the
// queue engine. No error is silently dropped: every recorded error
// either ends with ResolvedAt set or parks in the dead letter store
// with a visible status.
package recovery
