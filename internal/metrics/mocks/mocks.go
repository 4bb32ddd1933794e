// Package mocks provides a testify mock of metrics.BusinessMetrics.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/eventledger/internal/metrics"
)

// MockBusinessMetrics is a mock implementation of metrics.BusinessMetrics.
type MockBusinessMetrics struct {
	mock.Mock
}

var _ metrics.BusinessMetrics = (*MockBusinessMetrics)(nil)

// RecordOperation mocks the RecordOperation method.
func (m *MockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

// RecordDuration mocks the RecordDuration method.
func (m *MockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

// RecordEvent mocks the RecordEvent method.
func (m *MockBusinessMetrics) RecordEvent(ctx context.Context, eventType, outcome string) {
	m.Called(ctx, eventType, outcome)
}

// ObserveBacklog mocks the ObserveBacklog method.
func (m *MockBusinessMetrics) ObserveBacklog(count func(ctx context.Context) (int64, error)) error {
	args := m.Called(count)
	return args.Error(0)
}

// ExpectOperation registers one RecordOperation and one RecordDuration call.
func (m *MockBusinessMetrics) ExpectOperation(ctx context.Context, domain, operation, status string) {
	m.On("RecordOperation", ctx, domain, operation, status).Return().Once()
	m.On("RecordDuration", ctx, domain, operation, mock.AnythingOfType("time.Duration"), status).Return().Once()
}
