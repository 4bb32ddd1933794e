package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/eventledger/internal/errors"
	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/outbox/domain"
)

// PayloadSealer encrypts and decrypts envelope payloads.
type PayloadSealer interface {
	Seal(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	Open(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// sealedLedger stores payloads sealed and hands them back opened. A row whose payload
// cannot be opened is still returned, with Message.PayloadError set, so it never hides
// the rows around it.
type sealedLedger struct {
	next   Ledger
	sealer PayloadSealer
}

// NewSealedLedger wraps a Ledger so payloads are encrypted at rest.
func NewSealedLedger(ledger Ledger, sealer PayloadSealer) Ledger {
	return &sealedLedger{next: ledger, sealer: sealer}
}

func (s *sealedLedger) Append(ctx context.Context, envelope eventDomain.Envelope) (*domain.Message, error) {
	if err := envelope.Validate(); err != nil {
		return nil, err
	}

	plain := envelope.Payload
	sealed, err := s.sealer.Seal(ctx, plain)
	if err != nil {
		return nil, err
	}
	envelope.Payload = sealed

	msg, err := s.next.Append(ctx, envelope)
	if err != nil {
		return nil, err
	}
	msg.Envelope.Payload = plain
	return msg, nil
}

func (s *sealedLedger) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.open(ctx, msg)
	return msg, nil
}

func (s *sealedLedger) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	messages, err := s.next.ListUnpublished(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.openAll(ctx, messages)
	return messages, nil
}

func (s *sealedLedger) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	messages, err := s.next.ListFailed(ctx, maxRetries)
	if err != nil {
		return nil, err
	}
	s.openAll(ctx, messages)
	return messages, nil
}

func (s *sealedLedger) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return s.next.MarkPublished(ctx, id)
}

func (s *sealedLedger) IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error {
	return s.next.IncrementRetry(ctx, id, reason)
}

func (s *sealedLedger) Requeue(ctx context.Context, id uuid.UUID) error {
	return s.next.Requeue(ctx, id)
}

func (s *sealedLedger) PurgePublishedOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	return s.next.PurgePublishedOlderThan(ctx, olderThan, dryRun)
}

func (s *sealedLedger) CountUnpublished(ctx context.Context) (int64, error) {
	return s.next.CountUnpublished(ctx)
}

func (s *sealedLedger) open(ctx context.Context, msg *domain.Message) {
	payload, err := s.sealer.Open(ctx, msg.Envelope.Payload)
	if err != nil {
		msg.PayloadError = apperrors.Wrapf(err, "outbox message %s", msg.ID)
		return
	}
	msg.Envelope.Payload = payload
}

func (s *sealedLedger) openAll(ctx context.Context, messages []*domain.Message) {
	for _, msg := range messages {
		s.open(ctx, msg)
	}
}
