package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/metrics"
	"github.com/allisson/eventledger/internal/outbox/domain"
)

const metricsDomain = "outbox"

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func record(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := statusOf(err)
	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// outboxUseCaseWithMetrics decorates OutboxUseCase with metrics instrumentation.
type outboxUseCaseWithMetrics struct {
	next    OutboxUseCase
	metrics metrics.BusinessMetrics
}

// NewOutboxUseCaseWithMetrics wraps an OutboxUseCase with metrics recording.
func NewOutboxUseCaseWithMetrics(useCase OutboxUseCase, m metrics.BusinessMetrics) OutboxUseCase {
	return &outboxUseCaseWithMetrics{next: useCase, metrics: m}
}

func (o *outboxUseCaseWithMetrics) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	start := time.Now()
	messages, err := o.next.ListUnpublished(ctx, limit)
	record(ctx, o.metrics, "message_list_unpublished", start, err)
	return messages, err
}

func (o *outboxUseCaseWithMetrics) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	start := time.Now()
	messages, err := o.next.ListFailed(ctx, maxRetries)
	record(ctx, o.metrics, "message_list_failed", start, err)
	return messages, err
}

func (o *outboxUseCaseWithMetrics) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	start := time.Now()
	msg, err := o.next.GetByID(ctx, id)
	record(ctx, o.metrics, "message_get", start, err)
	return msg, err
}

func (o *outboxUseCaseWithMetrics) Requeue(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := o.next.Requeue(ctx, id)
	record(ctx, o.metrics, "message_requeue", start, err)
	return err
}

func (o *outboxUseCaseWithMetrics) PurgePublished(ctx context.Context, days int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := o.next.PurgePublished(ctx, days, dryRun)
	record(ctx, o.metrics, "message_purge", start, err)
	return count, err
}

func (o *outboxUseCaseWithMetrics) Backlog(ctx context.Context) (int64, error) {
	start := time.Now()
	count, err := o.next.Backlog(ctx)
	record(ctx, o.metrics, "backlog_count", start, err)
	return count, err
}

// publisherWithMetrics records every publish attempt made by the dispatcher.
type publisherWithMetrics struct {
	next    Publisher
	metrics metrics.BusinessMetrics
}

// NewPublisherWithMetrics wraps a Publisher with metrics recording.
func NewPublisherWithMetrics(publisher Publisher, m metrics.BusinessMetrics) Publisher {
	return &publisherWithMetrics{next: publisher, metrics: m}
}

func (p *publisherWithMetrics) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	start := time.Now()
	err := p.next.Publish(ctx, envelope)
	record(ctx, p.metrics, "event_publish", start, err)
	outcome := metrics.EventPublished
	if err != nil {
		outcome = metrics.EventPublishFailed
	}
	p.metrics.RecordEvent(ctx, envelope.EventType, outcome)
	return err
}

// NewEscalationWithMetrics counts escalations per event type before handing them to next.
func NewEscalationWithMetrics(next EscalationPolicy, m metrics.BusinessMetrics) EscalationPolicy {
	return EscalationFunc(func(ctx context.Context, msg *domain.Message, cause error) {
		m.RecordEvent(ctx, msg.Envelope.EventType, metrics.EventEscalated)
		next.Escalate(ctx, msg, cause)
	})
}

// ledgerWithMetrics records the ledger writes that drive delivery state.
type ledgerWithMetrics struct {
	Ledger
	metrics metrics.BusinessMetrics
}

// NewLedgerWithMetrics wraps a Ledger with metrics recording for Append, MarkPublished and IncrementRetry.
// Reads pass through unmeasured.
func NewLedgerWithMetrics(ledger Ledger, m metrics.BusinessMetrics) Ledger {
	return &ledgerWithMetrics{Ledger: ledger, metrics: m}
}

func (l *ledgerWithMetrics) Append(ctx context.Context, envelope eventDomain.Envelope) (*domain.Message, error) {
	start := time.Now()
	msg, err := l.Ledger.Append(ctx, envelope)
	record(ctx, l.metrics, "message_append", start, err)
	if err == nil {
		l.metrics.RecordEvent(ctx, envelope.EventType, metrics.EventAppended)
	}
	return msg, err
}

func (l *ledgerWithMetrics) MarkPublished(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := l.Ledger.MarkPublished(ctx, id)
	record(ctx, l.metrics, "message_mark_published", start, err)
	return err
}

func (l *ledgerWithMetrics) IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error {
	start := time.Now()
	err := l.Ledger.IncrementRetry(ctx, id, reason)
	record(ctx, l.metrics, "message_increment_retry", start, err)
	return err
}
