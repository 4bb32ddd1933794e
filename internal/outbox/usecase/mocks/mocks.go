// Package mocks provides mock implementations of the outbox use case interfaces for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/outbox/domain"
)

// MockLedger is a mock implementation of Ledger.
type MockLedger struct {
	mock.Mock
}

// Append mocks the Append method of Ledger.
func (m *MockLedger) Append(ctx context.Context, envelope eventDomain.Envelope) (*domain.Message, error) {
	args := m.Called(ctx, envelope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// GetByID mocks the GetByID method of Ledger.
func (m *MockLedger) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// ListUnpublished mocks the ListUnpublished method of Ledger.
func (m *MockLedger) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// ListFailed mocks the ListFailed method of Ledger.
func (m *MockLedger) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	args := m.Called(ctx, maxRetries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// MarkPublished mocks the MarkPublished method of Ledger.
func (m *MockLedger) MarkPublished(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// IncrementRetry mocks the IncrementRetry method of Ledger.
func (m *MockLedger) IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// Requeue mocks the Requeue method of Ledger.
func (m *MockLedger) Requeue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// PurgePublishedOlderThan mocks the PurgePublishedOlderThan method of Ledger.
func (m *MockLedger) PurgePublishedOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// CountUnpublished mocks the CountUnpublished method of Ledger.
func (m *MockLedger) CountUnpublished(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

// Publish mocks the Publish method of Publisher.
func (m *MockPublisher) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}

// MockEscalationPolicy is a mock implementation of EscalationPolicy.
type MockEscalationPolicy struct {
	mock.Mock
}

// Escalate mocks the Escalate method of EscalationPolicy.
func (m *MockEscalationPolicy) Escalate(ctx context.Context, msg *domain.Message, cause error) {
	m.Called(ctx, msg, cause)
}

// MockOutboxUseCase is a mock implementation of OutboxUseCase.
type MockOutboxUseCase struct {
	mock.Mock
}

// ListUnpublished mocks the ListUnpublished method of OutboxUseCase.
func (m *MockOutboxUseCase) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// ListFailed mocks the ListFailed method of OutboxUseCase.
func (m *MockOutboxUseCase) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	args := m.Called(ctx, maxRetries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// GetByID mocks the GetByID method of OutboxUseCase.
func (m *MockOutboxUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// Requeue mocks the Requeue method of OutboxUseCase.
func (m *MockOutboxUseCase) Requeue(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// PurgePublished mocks the PurgePublished method of OutboxUseCase.
func (m *MockOutboxUseCase) PurgePublished(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// Backlog mocks the Backlog method of OutboxUseCase.
func (m *MockOutboxUseCase) Backlog(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
