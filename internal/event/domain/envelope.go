// Package domain defines the event envelope shared by aggregates, the outbox ledger and publishers.
package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/eventledger/internal/errors"
	customValidation "github.com/allisson/eventledger/internal/validation"
)

// DefaultEventVersion is the schema version assigned when none is given.
const DefaultEventVersion = 1

// TimePrecision is the resolution of envelope timestamps, the finest every ledger driver stores.
const TimePrecision = time.Microsecond

// Envelope is an immutable record of something that happened to an aggregate.
// It is passed by value; the payload slice must not be modified after construction.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventVersion  int             `json:"event_version"`
	CausationID   *string         `json:"causation_id,omitempty"`
	CorrelationID *string         `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EnvelopeOption customizes an envelope during construction.
type EnvelopeOption func(*Envelope)

// WithEventVersion sets the schema version of the event shape.
func WithEventVersion(version int) EnvelopeOption {
	return func(e *Envelope) {
		e.EventVersion = version
	}
}

// WithCausationID records the id of the command or event that triggered this one.
func WithCausationID(id string) EnvelopeOption {
	return func(e *Envelope) {
		e.CausationID = &id
	}
}

// WithCorrelationID records the id shared by a whole business transaction.
func WithCorrelationID(id string) EnvelopeOption {
	return func(e *Envelope) {
		e.CorrelationID = &id
	}
}

// WithOccurredAt overrides the construction timestamp, truncated to TimePrecision.
func WithOccurredAt(at time.Time) EnvelopeOption {
	return func(e *Envelope) {
		e.OccurredAt = at.UTC().Truncate(TimePrecision)
	}
}

// NewEnvelope builds a validated envelope, encoding payload as JSON.
func NewEnvelope(
	eventType, aggregateType, aggregateID string,
	payload any,
	opts ...EnvelopeOption,
) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, apperrors.Wrap(ErrInvalidPayload, err.Error())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, apperrors.Wrap(err, "failed to generate event id")
	}

	e := Envelope{
		ID:            id,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Truncate(TimePrecision),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventVersion:  DefaultEventVersion,
		Payload:       raw,
	}
	for _, opt := range opts {
		opt(&e)
	}

	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Validate checks the envelope invariants.
func (e Envelope) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.By(notNilUUID)),
		validation.Field(&e.EventType, validation.Required, customValidation.Discriminator),
		validation.Field(&e.AggregateType, validation.Required, customValidation.Discriminator),
		validation.Field(&e.AggregateID, validation.Required, customValidation.NotBlank),
		validation.Field(&e.OccurredAt, validation.Required),
		validation.Field(&e.EventVersion, validation.Min(1)),
		validation.Field(&e.Payload, validation.Required, customValidation.JSONDocument),
	)
	return customValidation.WrapValidationError(err)
}

// Equal reports whether both envelopes carry the same attributes and payload.
func (e Envelope) Equal(other Envelope) bool {
	return e.ID == other.ID &&
		e.EventType == other.EventType &&
		e.OccurredAt.Equal(other.OccurredAt) &&
		e.AggregateID == other.AggregateID &&
		e.AggregateType == other.AggregateType &&
		e.EventVersion == other.EventVersion &&
		equalOptional(e.CausationID, other.CausationID) &&
		equalOptional(e.CorrelationID, other.CorrelationID) &&
		bytes.Equal(e.Payload, other.Payload)
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return apperrors.Wrap(ErrInvalidPayload, err.Error())
	}
	return nil
}

// HasCausationID reports whether a causation id is present.
func (e Envelope) HasCausationID() bool {
	return e.CausationID != nil
}

// HasCorrelationID reports whether a correlation id is present.
func (e Envelope) HasCorrelationID() bool {
	return e.CorrelationID != nil
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func notNilUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_uuid_required", "cannot be blank")
	}
	return nil
}
