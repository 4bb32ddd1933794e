package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	metricsMocks "github.com/allisson/eventledger/internal/metrics/mocks"
	"github.com/allisson/eventledger/internal/user/domain"
	"github.com/allisson/eventledger/internal/user/usecase"
	"github.com/allisson/eventledger/internal/user/usecase/mocks"
)

func expectMetrics(ctx context.Context, m *metricsMocks.MockBusinessMetrics, operation, status string) {
	m.ExpectOperation(ctx, "user", operation, status)
}

func TestUserUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())
	meta := usecase.Metadata{Actor: "admin"}
	user := &domain.User{Name: "Ada"}

	t.Run("Success", func(t *testing.T) {
		next := &mocks.MockUseCase{}
		m := &metricsMocks.MockBusinessMetrics{}
		decorator := usecase.NewUserUseCaseWithMetrics(next, m)

		input := usecase.RegisterUserInput{Name: "Ada"}
		rename := usecase.RenameUserInput{Name: "Grace"}
		next.On("RegisterUser", ctx, input, meta).Return(user, nil).Once()
		next.On("GetUserByID", ctx, id).Return(user, nil).Once()
		next.On("GetUserByEmail", ctx, "ada@example.com").Return(user, nil).Once()
		next.On("RenameUser", ctx, id, rename, meta).Return(user, nil).Once()
		next.On("DeleteUser", ctx, id, meta).Return(nil).Once()
		next.On("RestoreUser", ctx, id, meta).Return(user, nil).Once()
		for _, op := range []string{
			"user_register", "user_get", "user_get_by_email", "user_rename", "user_delete", "user_restore",
		} {
			expectMetrics(ctx, m, op, "success")
		}

		_, err := decorator.RegisterUser(ctx, input, meta)
		assert.NoError(t, err)
		_, err = decorator.GetUserByID(ctx, id)
		assert.NoError(t, err)
		_, err = decorator.GetUserByEmail(ctx, "ada@example.com")
		assert.NoError(t, err)
		_, err = decorator.RenameUser(ctx, id, rename, meta)
		assert.NoError(t, err)
		assert.NoError(t, decorator.DeleteUser(ctx, id, meta))
		_, err = decorator.RestoreUser(ctx, id, meta)
		assert.NoError(t, err)

		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		next := &mocks.MockUseCase{}
		m := &metricsMocks.MockBusinessMetrics{}
		decorator := usecase.NewUserUseCaseWithMetrics(next, m)

		next.On("DeleteUser", ctx, id, meta).Return(errors.New("boom")).Once()
		expectMetrics(ctx, m, "user_delete", "error")

		assert.Error(t, decorator.DeleteUser(ctx, id, meta))
		m.AssertExpectations(t)
	})
}
