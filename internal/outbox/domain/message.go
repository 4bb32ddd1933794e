// Package domain defines the outbox ledger row and its errors.
package domain

import (
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// Message is a ledger row wrapping one envelope plus dispatch bookkeeping.
// PublishedAt is set once on successful delivery; RetryCount only grows.
type Message struct {
	ID            uuid.UUID
	Envelope      eventDomain.Envelope
	CreatedAt     time.Time
	PublishedAt   *time.Time
	RetryCount    int
	LastError     *string
	LastAttemptAt *time.Time
	// PayloadError is set when the stored payload could not be read back. The envelope then
	// keeps the stored payload and the row must not be published.
	PayloadError error
}

// NewMessage wraps an envelope in a fresh unpublished row. CreatedAt is truncated to the
// envelope timestamp precision.
func NewMessage(envelope eventDomain.Envelope, now time.Time) (*Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        id,
		Envelope:  envelope,
		CreatedAt: now.UTC().Truncate(eventDomain.TimePrecision),
	}, nil
}

// IsPublished reports whether the row has been delivered.
func (m *Message) IsPublished() bool {
	return m.PublishedAt != nil
}

// IsFailed reports whether the row is unpublished and has exhausted maxRetries.
func (m *Message) IsFailed(maxRetries int) bool {
	return !m.IsPublished() && m.RetryCount >= maxRetries
}
