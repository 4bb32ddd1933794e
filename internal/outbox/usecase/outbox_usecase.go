package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/eventledger/internal/outbox/domain"
)

// outboxUseCase implements OutboxUseCase.
type outboxUseCase struct {
	ledger Ledger
	now    func() time.Time
}

// NewOutboxUseCase creates a new OutboxUseCase over the given ledger.
func NewOutboxUseCase(ledger Ledger) OutboxUseCase {
	return &outboxUseCase{ledger: ledger, now: time.Now}
}

// ListUnpublished returns up to limit unpublished rows, oldest first.
func (o *outboxUseCase) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	return o.ledger.ListUnpublished(ctx, limit)
}

// ListFailed returns unpublished rows whose retry count reached maxRetries.
func (o *outboxUseCase) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	return o.ledger.ListFailed(ctx, maxRetries)
}

// GetByID returns a single row.
func (o *outboxUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return o.ledger.GetByID(ctx, id)
}

// Requeue marks a row unpublished so the dispatcher delivers it again.
func (o *outboxUseCase) Requeue(ctx context.Context, id uuid.UUID) error {
	return o.ledger.Requeue(ctx, id)
}

// PurgePublished deletes rows published more than days ago.
func (o *outboxUseCase) PurgePublished(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, domain.ErrInvalidRetention
	}
	olderThan := o.now().UTC().AddDate(0, 0, -days)
	return o.ledger.PurgePublishedOlderThan(ctx, olderThan, dryRun)
}

// Backlog returns the number of unpublished rows.
func (o *outboxUseCase) Backlog(ctx context.Context) (int64, error) {
	return o.ledger.CountUnpublished(ctx)
}
