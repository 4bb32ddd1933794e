package publisher

import (
	"context"
	"encoding/json"
	"log/slog"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// LogPublisher writes every envelope to the logger. Useful for local development.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the envelope. Payloads that are not valid JSON are rejected.
func (p *LogPublisher) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	var payload any
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return err
	}

	if p.logger != nil {
		p.logger.InfoContext(ctx, "event published",
			slog.String("event_id", envelope.ID.String()),
			slog.String("event_type", envelope.EventType),
			slog.String("aggregate_type", envelope.AggregateType),
			slog.String("aggregate_id", envelope.AggregateID),
			slog.Any("payload", payload),
		)
	}
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error {
	return nil
}
