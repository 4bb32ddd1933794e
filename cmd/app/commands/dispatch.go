package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
)

// dispatchResultJSON is the machine-readable form of one dispatch cycle.
type dispatchResultJSON struct {
	Fetched     int `json:"fetched"`
	Published   int `json:"published"`
	Failed      int `json:"failed"`
	Deferred    int `json:"deferred"`
	Abandoned   int `json:"abandoned"`
	Escalated   int `json:"escalated"`
	StateErrors int `json:"state_errors"`
}

// RunDispatch delivers unpublished outbox messages. With once it runs a single cycle
// and reports the result; otherwise it polls until SIGINT/SIGTERM.
func RunDispatch(
	ctx context.Context,
	dispatcher outboxUsecase.DispatchUseCase,
	logger *slog.Logger,
	writer io.Writer,
	once bool,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if !once {
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox dispatcher error: %w", err)
		}
		return nil
	}

	result, err := dispatcher.DispatchBatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to dispatch outbox batch: %w", err)
	}

	logger.Info("dispatch cycle completed",
		slog.Int("fetched", result.Fetched),
		slog.Int("published", result.Published),
		slog.Int("failed", result.Failed),
	)

	if format == "json" {
		return writeJSON(writer, dispatchResultJSON(result))
	}

	_, err = fmt.Fprintf(
		writer,
		"Fetched %d message(s): %d published, %d failed, %d deferred, %d escalated\n",
		result.Fetched,
		result.Published,
		result.Failed,
		result.Deferred,
		result.Escalated,
	)
	return err
}
