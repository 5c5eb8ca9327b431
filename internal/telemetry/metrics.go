package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the reconciliation metrics meter
	SyncMetricsMeterName = "github.com/coursesync/sisu-moodle-sync/sync"

	// DefaultMetricsInterval is how often metrics are pushed to the OTLP collector
	DefaultMetricsInterval = 60 * time.Second
)

// SyncMetrics holds the OpenTelemetry instruments for reconciliation runs
type SyncMetrics struct {
	runDuration   metric.Float64Histogram
	itemsTotal    metric.Int64Counter
	actionsTotal  metric.Int64Counter
	thresholdHits metric.Int64Counter
	groupChanges  metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"sms_run_duration_seconds",
		metric.WithDescription("Duration of reconciliation runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return nil, err
	}

	itemsTotal, err := meter.Int64Counter(
		"sms_items_total",
		metric.WithDescription("Number of reconciled courses by final status"),
		metric.WithUnit("{course}"),
	)
	if err != nil {
		return nil, err
	}

	actionsTotal, err := meter.Int64Counter(
		"sms_enrollment_actions_total",
		metric.WithDescription("Number of enrollment actions by type and outcome"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	thresholdHits, err := meter.Int64Counter(
		"sms_threshold_violations_total",
		metric.WithDescription("Number of courses locked by the threshold guard"),
		metric.WithUnit("{course}"),
	)
	if err != nil {
		return nil, err
	}

	groupChanges, err := meter.Int64Counter(
		"sms_group_changes_total",
		metric.WithDescription("Number of applied group changes by kind and outcome"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration:   runDuration,
		itemsTotal:    itemsTotal,
		actionsTotal:  actionsTotal,
		thresholdHits: thresholdHits,
		groupChanges:  groupChanges,
	}, nil
}

// RecordRunDuration records the wall time of one reconciliation run
func (m *SyncMetrics) RecordRunDuration(ctx context.Context, runType string, duration time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("run_type", runType),
		attribute.Bool("success", success),
	))
}

// RecordItem counts one course with its final status
func (m *SyncMetrics) RecordItem(ctx context.Context, status string) {
	if m == nil || m.itemsTotal == nil {
		return
	}
	m.itemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordActions counts n enrollment actions of one type with one outcome
func (m *SyncMetrics) RecordActions(ctx context.Context, actionType, status string, n int) {
	if m == nil || m.actionsTotal == nil || n == 0 {
		return
	}
	m.actionsTotal.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("action", actionType),
		attribute.String("status", status),
	))
}

// RecordThresholdViolation counts a course locked because of a threshold breach
func (m *SyncMetrics) RecordThresholdViolation(ctx context.Context, actionType string) {
	if m == nil || m.thresholdHits == nil {
		return
	}
	m.thresholdHits.Add(ctx, 1, metric.WithAttributes(attribute.String("action", actionType)))
}

// RecordGroupChange counts one applied group change node
func (m *SyncMetrics) RecordGroupChange(ctx context.Context, kind, status string) {
	if m == nil || m.groupChanges == nil {
		return
	}
	m.groupChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}
