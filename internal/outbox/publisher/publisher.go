// Package publisher provides Publisher adapters that hand ledger envelopes to external channels.
// Every adapter sends the envelope serialized as JSON and may deliver the same envelope more
// than once; consumers deduplicate on the event id.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// Publisher is a closable outbox publisher.
type Publisher interface {
	Publish(ctx context.Context, envelope eventDomain.Envelope) error
	Close() error
}

// Metadata keys attached to transport messages alongside the serialized envelope.
const (
	MetadataEventID       = "event_id"
	MetadataEventType     = "event_type"
	MetadataAggregateType = "aggregate_type"
	MetadataAggregateID   = "aggregate_id"
	MetadataCorrelationID = "correlation_id"
	MetadataCausationID   = "causation_id"
)

func encodeEnvelope(envelope eventDomain.Envelope) ([]byte, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope %s: %w", envelope.ID, err)
	}
	return body, nil
}

func metadataOf(envelope eventDomain.Envelope) map[string]string {
	metadata := map[string]string{
		MetadataEventID:       envelope.ID.String(),
		MetadataEventType:     envelope.EventType,
		MetadataAggregateType: envelope.AggregateType,
		MetadataAggregateID:   envelope.AggregateID,
	}
	if envelope.HasCorrelationID() {
		metadata[MetadataCorrelationID] = *envelope.CorrelationID
	}
	if envelope.HasCausationID() {
		metadata[MetadataCausationID] = *envelope.CausationID
	}
	return metadata
}
