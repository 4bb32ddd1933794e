package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	validation "github.com/jellydator/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/eventledger/internal/errors"
	"github.com/allisson/eventledger/internal/outbox/domain"
	customValidation "github.com/allisson/eventledger/internal/validation"
)

const (
	tracerName = "github.com/allisson/eventledger/internal/outbox/usecase"

	// stateUpdateTimeout bounds ledger writes that run detached from the caller's cancellation.
	stateUpdateTimeout = 5 * time.Second
)

// ErrPublisherPanic wraps a panic raised inside a Publisher.
var ErrPublisherPanic = apperrors.New("publisher panicked")

// Config holds dispatcher configuration.
type Config struct {
	// BatchSize is the number of rows fetched per cycle.
	BatchSize int
	// PollInterval is the pause between cycles.
	PollInterval time.Duration
	// MaxRetries is the retry count at which a row is escalated and reported by ListFailed.
	MaxRetries int
	// PublishTimeout bounds a single Publish call. Zero disables the bound.
	PublishTimeout time.Duration
	// PublishRatePerSec caps publish calls per second. Zero disables the limiter.
	PublishRatePerSec float64
	// RetryBackoff is the base delay before a failed row is attempted again, doubled per retry.
	// Zero retries failed rows on every cycle.
	RetryBackoff time.Duration
	// MaxRetryBackoff caps the per-row delay. Required when RetryBackoff is set.
	MaxRetryBackoff time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.BatchSize, validation.Required, validation.Min(1)),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.PublishTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.PublishRatePerSec, validation.Min(0.0)),
		validation.Field(&c.RetryBackoff, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetryBackoff,
			validation.When(c.RetryBackoff > 0, validation.Required),
			validation.Min(c.RetryBackoff),
		),
	)
	return customValidation.WrapValidationError(err)
}

// DispatchResult summarizes one cycle.
type DispatchResult struct {
	Fetched   int
	Published int
	Failed    int
	// Deferred rows were skipped because their retry backoff has not elapsed.
	Deferred int
	// Abandoned rows were left untouched because the dispatcher was cancelled.
	Abandoned int
	Escalated int
	// StateErrors counts rows whose ledger update failed after the publish attempt.
	StateErrors int
}

// Dispatcher drains unpublished ledger rows into a Publisher with at-least-once delivery.
// Several dispatchers may run against the same ledger.
type Dispatcher struct {
	config     Config
	ledger     Ledger
	publisher  Publisher
	escalation EscalationPolicy
	limiter    *rate.Limiter
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher. A nil escalation policy logs escalations.
func NewDispatcher(
	config Config,
	ledger Ledger,
	publisher Publisher,
	escalation EscalationPolicy,
	logger *slog.Logger,
) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if escalation == nil {
		escalation = NewLogEscalationPolicy(logger)
	}

	var limiter *rate.Limiter
	if config.PublishRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.PublishRatePerSec), max(1, int(config.PublishRatePerSec)))
	}

	return &Dispatcher{
		config:     config,
		ledger:     ledger,
		publisher:  publisher,
		escalation: escalation,
		limiter:    limiter,
		tracer:     otel.Tracer(tracerName),
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Start runs a cycle immediately and then once per PollInterval until ctx is cancelled.
// Ledger and publisher failures never stop the loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("starting outbox dispatcher",
		slog.Duration("poll_interval", d.config.PollInterval),
		slog.Int("batch_size", d.config.BatchSize),
		slog.Int("max_retries", d.config.MaxRetries),
	)

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		// Errors are logged by DispatchBatch; a failed cycle is retried on the next tick.
		_, _ = d.DispatchBatch(ctx)

		select {
		case <-ctx.Done():
			d.logger.Info("stopping outbox dispatcher")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DispatchBatch runs one cycle: fetch up to BatchSize unpublished rows and attempt each in order.
// A failed row never aborts the batch. Once ctx is cancelled no new row is started.
func (d *Dispatcher) DispatchBatch(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	ctx, span := d.tracer.Start(ctx, "outbox.dispatch_batch")
	defer span.End()

	messages, err := d.ledger.ListUnpublished(ctx, d.config.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list unpublished failed")
		d.logger.Error("failed to list unpublished outbox messages", slog.Any("error", err))
		return result, err
	}
	result.Fetched = len(messages)

	for i, msg := range messages {
		if ctx.Err() != nil {
			result.Abandoned += len(messages) - i
			break
		}
		d.dispatchOne(ctx, msg, &result)
	}

	span.SetAttributes(
		attribute.Int("outbox.fetched", result.Fetched),
		attribute.Int("outbox.published", result.Published),
		attribute.Int("outbox.failed", result.Failed),
	)

	if result.Fetched > 0 {
		d.logger.Info("outbox batch dispatched",
			slog.Int("fetched", result.Fetched),
			slog.Int("published", result.Published),
			slog.Int("failed", result.Failed),
			slog.Int("deferred", result.Deferred),
			slog.Int("abandoned", result.Abandoned),
			slog.Int("escalated", result.Escalated),
			slog.Int("state_errors", result.StateErrors),
		)
	}

	return result, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, msg *domain.Message, result *DispatchResult) {
	if d.backingOff(msg) {
		result.Deferred++
		return
	}

	// An unreadable payload counts as a failed attempt so the row reaches ListFailed.
	publishErr := msg.PayloadError
	if publishErr == nil {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				result.Abandoned++
				return
			}
		}
		publishErr = d.publish(ctx, msg)
	}

	// Ledger updates are detached from cancellation so a delivered row is never left ambiguous.
	stateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateUpdateTimeout)
	defer cancel()

	if publishErr == nil {
		if err := d.ledger.MarkPublished(stateCtx, msg.ID); err != nil {
			result.StateErrors++
			d.logger.Error("failed to mark outbox message as published, it will be delivered again",
				slog.String("message_id", msg.ID.String()),
				slog.Any("error", err),
			)
			return
		}
		result.Published++
		return
	}

	if ctx.Err() != nil {
		result.Abandoned++
		d.logger.Info("outbox message abandoned on shutdown",
			slog.String("message_id", msg.ID.String()),
			slog.String("event_type", msg.Envelope.EventType),
		)
		return
	}

	result.Failed++
	d.logger.Warn("failed to publish outbox message",
		slog.String("message_id", msg.ID.String()),
		slog.String("event_id", msg.Envelope.ID.String()),
		slog.String("event_type", msg.Envelope.EventType),
		slog.Int("retry_count", msg.RetryCount+1),
		slog.Any("error", publishErr),
	)

	if err := d.ledger.IncrementRetry(stateCtx, msg.ID, publishErr.Error()); err != nil {
		result.StateErrors++
		d.logger.Error("failed to record outbox message retry",
			slog.String("message_id", msg.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	recorded := *msg
	recorded.RetryCount++
	reason := publishErr.Error()
	recorded.LastError = &reason
	if recorded.IsFailed(d.config.MaxRetries) && !msg.IsFailed(d.config.MaxRetries) {
		result.Escalated++
		d.escalation.Escalate(stateCtx, &recorded, publishErr)
	}
}

// publish calls the publisher with the per-call timeout, converting panics into errors.
func (d *Dispatcher) publish(ctx context.Context, msg *domain.Message) (err error) {
	ctx, span := d.tracer.Start(ctx, "outbox.publish", trace.WithAttributes(
		attribute.String("outbox.message_id", msg.ID.String()),
		attribute.String("event.id", msg.Envelope.ID.String()),
		attribute.String("event.type", msg.Envelope.EventType),
		attribute.String("aggregate.type", msg.Envelope.AggregateType),
	))
	defer span.End()

	if d.config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.PublishTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPublisherPanic, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return d.publisher.Publish(ctx, msg.Envelope)
}

// backingOff reports whether a previously failed row is still inside its retry delay.
func (d *Dispatcher) backingOff(msg *domain.Message) bool {
	if d.config.RetryBackoff <= 0 || msg.RetryCount == 0 || msg.LastAttemptAt == nil {
		return false
	}
	return d.now().Before(msg.LastAttemptAt.Add(d.retryDelay(msg.RetryCount)))
}

// retryDelay is the delay after the retryCount-th failure: RetryBackoff doubled per further
// failure, capped by MaxRetryBackoff.
func (d *Dispatcher) retryDelay(retryCount int) time.Duration {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(d.config.RetryBackoff),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxInterval(d.config.MaxRetryBackoff),
		backoff.WithMaxElapsedTime(0),
	)

	delay := b.NextBackOff()
	for i := 1; i < retryCount && delay < d.config.MaxRetryBackoff; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
