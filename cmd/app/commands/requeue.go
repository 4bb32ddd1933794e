package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
)

// RunRequeue marks an outbox message unpublished so the dispatcher delivers it again.
func RunRequeue(
	ctx context.Context,
	outboxUseCase outboxUsecase.OutboxUseCase,
	logger *slog.Logger,
	writer io.Writer,
	messageID string,
) error {
	id, err := uuid.Parse(messageID)
	if err != nil {
		return fmt.Errorf("invalid message ID format: %w", err)
	}

	if err := outboxUseCase.Requeue(ctx, id); err != nil {
		return fmt.Errorf("failed to requeue outbox message: %w", err)
	}

	logger.Info("outbox message requeued", slog.String("message_id", id.String()))
	_, err = fmt.Fprintf(writer, "Message %s requeued\n", id)
	return err
}
