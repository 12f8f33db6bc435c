// Package observability provides an OpenTelemetry-based lifecycle hook
// for syncq. The MetricsHook records system-wide counters for job
// enqueue, completion, failure, retry, error recording, escalation,
// and dead letter resolution events.
//
// For per-execution tracing and duration metrics, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
