package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
)

// RunPurgeOutbox deletes published outbox messages older than the specified number of days.
// Supports dry-run mode to preview the deletion count and both text/JSON output formats.
// Unpublished messages are never removed.
func RunPurgeOutbox(
	ctx context.Context,
	outboxUseCase outboxUsecase.OutboxUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("purging published outbox messages",
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	count, err := outboxUseCase.PurgePublished(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to purge outbox messages: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"count":   count,
			"days":    days,
			"dry_run": dryRun,
		}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d published message(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d published message(s) older than %d day(s)\n", count, days)
	}

	logger.Info("purge completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}
