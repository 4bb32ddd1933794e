package commands

import (
	"context"
	"fmt"
	"io"

	outboxHTTPDto "github.com/allisson/eventledger/internal/outbox/http/dto"
	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
)

// RunListFailed prints unpublished outbox messages whose retry count reached maxRetries.
func RunListFailed(
	ctx context.Context,
	outboxUseCase outboxUsecase.OutboxUseCase,
	writer io.Writer,
	maxRetries int,
	format string,
) error {
	if maxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got: %d", maxRetries)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	messages, err := outboxUseCase.ListFailed(ctx, maxRetries)
	if err != nil {
		return fmt.Errorf("failed to list failed outbox messages: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, outboxHTTPDto.MapMessagesToListResponse(messages))
	}

	if len(messages) == 0 {
		_, err := fmt.Fprintf(writer, "No failed messages (max retries: %d)\n", maxRetries)
		return err
	}

	for _, msg := range messages {
		lastError := "-"
		if msg.LastError != nil {
			lastError = *msg.LastError
		}
		if _, err := fmt.Fprintf(
			writer,
			"%s  %s  %s/%s  retries=%d  error=%s\n",
			msg.ID,
			msg.Envelope.EventType,
			msg.Envelope.AggregateType,
			msg.Envelope.AggregateID,
			msg.RetryCount,
			lastError,
		); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(writer, "%d failed message(s)\n", len(messages))
	return err
}
