package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/eventledger/internal/outbox/domain"
	outboxMocks "github.com/allisson/eventledger/internal/outbox/usecase/mocks"
)

func TestRunRequeue(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("success", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())
		mockUseCase := &outboxMocks.MockOutboxUseCase{}
		mockUseCase.On("Requeue", ctx, id).Return(nil)

		var out bytes.Buffer
		err := RunRequeue(ctx, mockUseCase, logger, &out, id.String())

		require.NoError(t, err)
		require.Contains(t, out.String(), "Message "+id.String()+" requeued")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("not-found", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())
		mockUseCase := &outboxMocks.MockOutboxUseCase{}
		mockUseCase.On("Requeue", ctx, id).Return(domain.ErrMessageNotFound)

		err := RunRequeue(ctx, mockUseCase, logger, &bytes.Buffer{}, id.String())

		require.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("invalid-id", func(t *testing.T) {
		mockUseCase := &outboxMocks.MockOutboxUseCase{}

		err := RunRequeue(ctx, mockUseCase, logger, &bytes.Buffer{}, "not-a-uuid")

		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid message ID format")
		mockUseCase.AssertNotCalled(t, "Requeue")
	})
}
