// Package usecase implements the user business logic. Every mutation is saved through the
// outbox unit of work so user state and its events commit together.
package usecase

import (
	"context"

	"github.com/google/uuid"

	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
	"github.com/allisson/eventledger/internal/user/domain"
)

// UserRepository defines user persistence. Create and Update run inside the unit of work
// transaction and take the stamp it computed.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error
	Update(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Metadata carries who performed a change and the request it belongs to.
type Metadata struct {
	Actor         string
	CorrelationID string
}

// RegisterUserInput contains the input data for user registration
type RegisterUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RenameUserInput contains the new name and, optionally, the version the caller last saw.
type RenameUserInput struct {
	Name            string
	ExpectedVersion *int64
}

// UseCase defines the interface for user business logic operations
type UseCase interface {
	RegisterUser(ctx context.Context, input RegisterUserInput, meta Metadata) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	RenameUser(ctx context.Context, id uuid.UUID, input RenameUserInput, meta Metadata) (*domain.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID, meta Metadata) error
	RestoreUser(ctx context.Context, id uuid.UUID, meta Metadata) (*domain.User, error)
}
