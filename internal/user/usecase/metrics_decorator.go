package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/eventledger/internal/metrics"
	"github.com/allisson/eventledger/internal/user/domain"
)

// userUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type userUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUserUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewUserUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &userUseCaseWithMetrics{next: useCase, metrics: m}
}

func (u *userUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	u.metrics.RecordOperation(ctx, "user", operation, status)
	u.metrics.RecordDuration(ctx, "user", operation, time.Since(start), status)
}

func (u *userUseCaseWithMetrics) RegisterUser(
	ctx context.Context,
	input RegisterUserInput,
	meta Metadata,
) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.RegisterUser(ctx, input, meta)
	u.record(ctx, "user_register", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.GetUserByID(ctx, id)
	u.record(ctx, "user_get", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.GetUserByEmail(ctx, email)
	u.record(ctx, "user_get_by_email", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) RenameUser(
	ctx context.Context,
	id uuid.UUID,
	input RenameUserInput,
	meta Metadata,
) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.RenameUser(ctx, id, input, meta)
	u.record(ctx, "user_rename", start, err)
	return user, err
}

func (u *userUseCaseWithMetrics) DeleteUser(ctx context.Context, id uuid.UUID, meta Metadata) error {
	start := time.Now()
	err := u.next.DeleteUser(ctx, id, meta)
	u.record(ctx, "user_delete", start, err)
	return err
}

func (u *userUseCaseWithMetrics) RestoreUser(ctx context.Context, id uuid.UUID, meta Metadata) (*domain.User, error) {
	start := time.Now()
	user, err := u.next.RestoreUser(ctx, id, meta)
	u.record(ctx, "user_restore", start, err)
	return user, err
}
