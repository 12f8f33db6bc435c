package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/syncq"
	"github.com/xraph/syncq/hook"
	"github.com/xraph/syncq/id"
	"github.com/xraph/syncq/job"
)

// meterName is the instrumentation scope name for lifecycle metrics.
const meterName = "github.com/xraph/syncq/observability"

// Compile-time interface checks.
var (
	_ hook.Hook           = (*MetricsHook)(nil)
	_ hook.JobEnqueued    = (*MetricsHook)(nil)
	_ hook.JobCompleted   = (*MetricsHook)(nil)
	_ hook.JobRetrying    = (*MetricsHook)(nil)
	_ hook.JobFailed      = (*MetricsHook)(nil)
	_ hook.ErrorRecorded  = (*MetricsHook)(nil)
	_ hook.ErrorEscalated = (*MetricsHook)(nil)
	_ hook.DLQResolved    = (*MetricsHook)(nil)
	_ hook.DLQAbandoned   = (*MetricsHook)(nil)
)

// MetricsHook records system-wide lifecycle counters. Register it with
// the engine to track enqueue rates, completion counts, failure rates,
// retries, recorded errors by type, escalations, and dead letter
// outcomes.
type MetricsHook struct {
	jobEnqueued    metric.Int64Counter
	jobCompleted   metric.Int64Counter
	jobRetried     metric.Int64Counter
	jobFailed      metric.Int64Counter
	errorsRecorded metric.Int64Counter
	escalations    metric.Int64Counter
	dlqResolved    metric.Int64Counter
	dlqAbandoned   metric.Int64Counter
}

// NewMetricsHook creates a MetricsHook using the global OTel
// MeterProvider. With no provider configured the instruments are noops.
func NewMetricsHook() *MetricsHook {
	return NewMetricsHookWithMeter(otel.Meter(meterName))
}

// NewMetricsHookWithMeter creates a MetricsHook with the provided
// meter. This variant allows injecting a specific MeterProvider for
// testing.
func NewMetricsHookWithMeter(meter metric.Meter) *MetricsHook {
	h := &MetricsHook{}

	// On error the OTel API returns noop instruments, so instrument
	// creation failures degrade gracefully.
	h.jobEnqueued, _ = meter.Int64Counter("syncq.job.enqueued",
		metric.WithDescription("Total jobs enqueued"), metric.WithUnit("{job}"))
	h.jobCompleted, _ = meter.Int64Counter("syncq.job.completed",
		metric.WithDescription("Total jobs completed"), metric.WithUnit("{job}"))
	h.jobRetried, _ = meter.Int64Counter("syncq.job.retried",
		metric.WithDescription("Total job retries scheduled"), metric.WithUnit("{retry}"))
	h.jobFailed, _ = meter.Int64Counter("syncq.job.failed",
		metric.WithDescription("Total terminal job failures"), metric.WithUnit("{job}"))
	h.errorsRecorded, _ = meter.Int64Counter("syncq.error.recorded",
		metric.WithDescription("Total errors recorded by the recovery manager"), metric.WithUnit("{error}"))
	h.escalations, _ = meter.Int64Counter("syncq.error.escalated",
		metric.WithDescription("Total errors escalated to the dead letter store"), metric.WithUnit("{error}"))
	h.dlqResolved, _ = meter.Int64Counter("syncq.dlq.resolved",
		metric.WithDescription("Total dead letter entries resolved"), metric.WithUnit("{entry}"))
	h.dlqAbandoned, _ = meter.Int64Counter("syncq.dlq.abandoned",
		metric.WithDescription("Total dead letter entries abandoned"), metric.WithUnit("{entry}"))

	return h
}

// Name implements hook.Hook.
func (h *MetricsHook) Name() string { return "observability-metrics" }

func typeAttr(jobType string) metric.AddOption {
	return metric.WithAttributes(attribute.String("job_type", jobType))
}

// OnJobEnqueued implements hook.JobEnqueued.
func (h *MetricsHook) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	h.jobEnqueued.Add(ctx, 1, typeAttr(j.Type))
	return nil
}

// OnJobCompleted implements hook.JobCompleted.
func (h *MetricsHook) OnJobCompleted(ctx context.Context, j *job.Job, _ time.Duration) error {
	h.jobCompleted.Add(ctx, 1, typeAttr(j.Type))
	return nil
}

// OnJobRetrying implements hook.JobRetrying.
func (h *MetricsHook) OnJobRetrying(ctx context.Context, j *job.Job, _ int, _ time.Time) error {
	h.jobRetried.Add(ctx, 1, typeAttr(j.Type))
	return nil
}

// OnJobFailed implements hook.JobFailed.
func (h *MetricsHook) OnJobFailed(ctx context.Context, j *job.Job, _ error) error {
	h.jobFailed.Add(ctx, 1, typeAttr(j.Type))
	return nil
}

// OnErrorRecorded implements hook.ErrorRecorded.
func (h *MetricsHook) OnErrorRecorded(ctx context.Context, serr *syncq.SyncError) error {
	h.errorsRecorded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", string(serr.Type)),
	))
	return nil
}

// OnErrorEscalated implements hook.ErrorEscalated.
func (h *MetricsHook) OnErrorEscalated(ctx context.Context, serr *syncq.SyncError, _ id.DLQID) error {
	h.escalations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", string(serr.Type)),
	))
	return nil
}

// OnDLQResolved implements hook.DLQResolved.
func (h *MetricsHook) OnDLQResolved(ctx context.Context, _ id.DLQID) error {
	h.dlqResolved.Add(ctx, 1)
	return nil
}

// OnDLQAbandoned implements hook.DLQAbandoned.
func (h *MetricsHook) OnDLQAbandoned(ctx context.Context, _ id.DLQID) error {
	h.dlqAbandoned.Add(ctx, 1)
	return nil
}
