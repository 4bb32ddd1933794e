// Package usecase implements outbox dispatch, ledger housekeeping and the unit of work
// that saves aggregate state and its pending events atomically.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/outbox/domain"
)

// Ledger is the durable outbox. Implementations join the transaction carried by ctx, if any.
type Ledger interface {
	Append(ctx context.Context, envelope eventDomain.Envelope) (*domain.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error)
	ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error
	Requeue(ctx context.Context, id uuid.UUID) error
	PurgePublishedOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
	CountUnpublished(ctx context.Context) (int64, error)
}

// Publisher hands an envelope to an external channel. Consumers must tolerate duplicates.
type Publisher interface {
	Publish(ctx context.Context, envelope eventDomain.Envelope) error
}

// EscalationPolicy is notified when a row reaches the retry threshold.
// The row stays in the ledger and keeps being retried.
type EscalationPolicy interface {
	Escalate(ctx context.Context, msg *domain.Message, cause error)
}

// DispatchUseCase drains the ledger into a Publisher.
type DispatchUseCase interface {
	Start(ctx context.Context) error
	DispatchBatch(ctx context.Context) (DispatchResult, error)
}

// OutboxUseCase exposes ledger housekeeping to operators.
type OutboxUseCase interface {
	ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error)
	ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	Requeue(ctx context.Context, id uuid.UUID) error
	// PurgePublished removes published rows older than days. With dryRun it only counts them.
	PurgePublished(ctx context.Context, days int, dryRun bool) (int64, error)
	Backlog(ctx context.Context) (int64, error)
}

// EventSource is the part of an aggregate the unit of work drives.
// aggregate/domain.Root satisfies it when embedded.
type EventSource interface {
	Version() int64
	PendingEvents() []eventDomain.Envelope
	ClearEvents()
	MarkAsCreated(by string, at time.Time)
	MarkAsUpdated(by string, at time.Time)
	IncrementVersion()
}

// Stamp describes the save being performed, for the state write.
type Stamp struct {
	Actor string
	At    time.Time
	// ExpectedVersion is the version loaded from storage; zero for a new aggregate.
	ExpectedVersion int64
	// Version is the version the aggregate will have after the save.
	Version int64
	Created bool
}

// PersistFunc writes aggregate state inside the unit of work transaction.
type PersistFunc func(ctx context.Context, stamp Stamp) error

// UnitOfWork saves aggregate state and appends its pending events in one transaction.
type UnitOfWork interface {
	Save(ctx context.Context, source EventSource, actor string, persist PersistFunc) error
}
