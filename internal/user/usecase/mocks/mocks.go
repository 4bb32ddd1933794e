// Package mocks provides testify mocks for the user use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/eventledger/internal/user/domain"
	"github.com/allisson/eventledger/internal/user/usecase"
)

// MockUseCase is a mock implementation of usecase.UseCase.
type MockUseCase struct {
	mock.Mock
}

var _ usecase.UseCase = (*MockUseCase)(nil)

func (m *MockUseCase) user(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// RegisterUser mocks the RegisterUser method of UseCase.
func (m *MockUseCase) RegisterUser(
	ctx context.Context,
	input usecase.RegisterUserInput,
	meta usecase.Metadata,
) (*domain.User, error) {
	return m.user(m.Called(ctx, input, meta))
}

// GetUserByID mocks the GetUserByID method of UseCase.
func (m *MockUseCase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.user(m.Called(ctx, id))
}

// GetUserByEmail mocks the GetUserByEmail method of UseCase.
func (m *MockUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.user(m.Called(ctx, email))
}

// RenameUser mocks the RenameUser method of UseCase.
func (m *MockUseCase) RenameUser(
	ctx context.Context,
	id uuid.UUID,
	input usecase.RenameUserInput,
	meta usecase.Metadata,
) (*domain.User, error) {
	return m.user(m.Called(ctx, id, input, meta))
}

// DeleteUser mocks the DeleteUser method of UseCase.
func (m *MockUseCase) DeleteUser(ctx context.Context, id uuid.UUID, meta usecase.Metadata) error {
	args := m.Called(ctx, id, meta)
	return args.Error(0)
}

// RestoreUser mocks the RestoreUser method of UseCase.
func (m *MockUseCase) RestoreUser(ctx context.Context, id uuid.UUID, meta usecase.Metadata) (*domain.User, error) {
	return m.user(m.Called(ctx, id, meta))
}
