package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcomes counted by RecordEvent.
const (
	EventAppended      = "appended"
	EventPublished     = "published"
	EventPublishFailed = "publish_failed"
	EventEscalated     = "escalated"
)

// BusinessMetrics records use case operations and the flow of events through the outbox.
type BusinessMetrics interface {
	// RecordOperation counts one operation. Domains are "outbox" and "user"; status is
	// "success" or "error".
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records how long an operation took, in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordEvent counts one envelope by event type and outcome (EventAppended,
	// EventPublished or EventPublishFailed).
	RecordEvent(ctx context.Context, eventType, outcome string)

	// ObserveBacklog makes count the source of the unpublished backlog gauge.
	// count runs on every collection.
	ObserveBacklog(count func(ctx context.Context) (int64, error)) error
}

type businessMetrics struct {
	meter            metric.Meter
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	eventCounter     metric.Int64Counter
	backlogGauge     metric.Int64ObservableGauge
}

// NewBusinessMetrics creates the instruments under namespace (e.g. "eventledger").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	eventCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_events_total", namespace),
		metric.WithDescription("Envelopes appended to and delivered from the outbox"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}

	backlogGauge, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_outbox_backlog", namespace),
		metric.WithDescription("Outbox messages awaiting delivery"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backlog gauge: %w", err)
	}

	return &businessMetrics{
		meter:            meter,
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		eventCounter:     eventCounter,
		backlogGauge:     backlogGauge,
	}, nil
}

func operationAttributes(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1, operationAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(), operationAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordEvent(ctx context.Context, eventType, outcome string) {
	b.eventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	))
}

func (b *businessMetrics) ObserveBacklog(count func(ctx context.Context) (int64, error)) error {
	_, err := b.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := count(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(b.backlogGauge, n)
		return nil
	}, b.backlogGauge)
	if err != nil {
		return fmt.Errorf("failed to register backlog callback: %w", err)
	}
	return nil
}

// NoOpBusinessMetrics discards everything. Used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordEvent(ctx context.Context, eventType, outcome string) {}

func (n *NoOpBusinessMetrics) ObserveBacklog(count func(ctx context.Context) (int64, error)) error {
	return nil
}
