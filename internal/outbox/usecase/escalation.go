package usecase

import (
	"context"
	"log/slog"

	"github.com/allisson/eventledger/internal/outbox/domain"
)

// LogEscalationPolicy reports rows that reached the retry threshold in the log.
type LogEscalationPolicy struct {
	logger *slog.Logger
}

// NewLogEscalationPolicy creates a LogEscalationPolicy.
func NewLogEscalationPolicy(logger *slog.Logger) *LogEscalationPolicy {
	return &LogEscalationPolicy{logger: logger}
}

// Escalate logs the row at warn level.
func (p *LogEscalationPolicy) Escalate(ctx context.Context, msg *domain.Message, cause error) {
	p.logger.WarnContext(ctx, "outbox message reached max retries",
		slog.String("message_id", msg.ID.String()),
		slog.String("event_id", msg.Envelope.ID.String()),
		slog.String("event_type", msg.Envelope.EventType),
		slog.String("aggregate_type", msg.Envelope.AggregateType),
		slog.String("aggregate_id", msg.Envelope.AggregateID),
		slog.Int("retry_count", msg.RetryCount),
		slog.Any("error", cause),
	)
}

// EscalationFunc adapts a function to EscalationPolicy.
type EscalationFunc func(ctx context.Context, msg *domain.Message, cause error)

// Escalate calls f.
func (f EscalationFunc) Escalate(ctx context.Context, msg *domain.Message, cause error) {
	f(ctx, msg, cause)
}
