// Package dto provides data transfer objects for the outbox operator API.
package dto

import (
	"encoding/json"
	"time"

	"github.com/allisson/eventledger/internal/outbox/domain"
)

// MessageResponse represents a ledger row in API responses.
type MessageResponse struct {
	ID            string          `json:"id"`
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID *string         `json:"correlation_id,omitempty"`
	CausationID   *string         `json:"causation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
	RetryCount    int             `json:"retry_count"`
	LastError     *string         `json:"last_error,omitempty"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	PayloadError  *string         `json:"payload_error,omitempty"`
}

// MapMessageToResponse converts a ledger row to an API response.
func MapMessageToResponse(msg *domain.Message) MessageResponse {
	env := msg.Envelope
	var payloadError *string
	if msg.PayloadError != nil {
		reason := msg.PayloadError.Error()
		payloadError = &reason
	}
	return MessageResponse{
		ID:            msg.ID.String(),
		EventID:       env.ID.String(),
		EventType:     env.EventType,
		EventVersion:  env.EventVersion,
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		OccurredAt:    env.OccurredAt,
		CorrelationID: env.CorrelationID,
		CausationID:   env.CausationID,
		Payload:       env.Payload,
		CreatedAt:     msg.CreatedAt,
		PublishedAt:   msg.PublishedAt,
		RetryCount:    msg.RetryCount,
		LastError:     msg.LastError,
		LastAttemptAt: msg.LastAttemptAt,
		PayloadError:  payloadError,
	}
}

// ListMessagesResponse represents a list of ledger rows in API responses.
type ListMessagesResponse struct {
	Data []MessageResponse `json:"data"`
}

// MapMessagesToListResponse converts ledger rows to a list API response.
func MapMessagesToListResponse(messages []*domain.Message) ListMessagesResponse {
	data := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		data = append(data, MapMessageToResponse(msg))
	}
	return ListMessagesResponse{Data: data}
}

// PurgeResponse reports how many published rows were (or would be) removed.
type PurgeResponse struct {
	Count  int64 `json:"count"`
	Days   int   `json:"days"`
	DryRun bool  `json:"dry_run"`
}

// BacklogResponse reports the number of rows awaiting delivery.
type BacklogResponse struct {
	Unpublished int64 `json:"unpublished"`
}
