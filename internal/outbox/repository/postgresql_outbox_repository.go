package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/eventledger/internal/database"
	apperrors "github.com/allisson/eventledger/internal/errors"
	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/outbox/domain"
)

// PostgreSQLOutboxRepository stores ledger rows in PostgreSQL.
type PostgreSQLOutboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository.
func NewPostgreSQLOutboxRepository(db *sql.DB) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{db: db, now: time.Now}
}

// Append inserts one unpublished row wrapping envelope.
func (r *PostgreSQLOutboxRepository) Append(
	ctx context.Context,
	envelope eventDomain.Envelope,
) (*domain.Message, error) {
	if err := envelope.Validate(); err != nil {
		return nil, err
	}

	msg, err := domain.NewMessage(envelope, r.now())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create outbox message")
	}

	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_messages (id, event_id, event_type, aggregate_type, aggregate_id, event_version,
			  occurred_at, causation_id, correlation_id, payload, created_at, retry_count)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)`

	_, err = querier.ExecContext(ctx, query, msg.ID, envelope.ID, envelope.EventType, envelope.AggregateType,
		envelope.AggregateID, envelope.EventVersion, envelope.OccurredAt, envelope.CausationID,
		envelope.CorrelationID, []byte(envelope.Payload), msg.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateEvent
		}
		return nil, apperrors.Wrap(err, "failed to append outbox message")
	}

	return msg, nil
}

// GetByID returns a single row.
func (r *PostgreSQLOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + messageColumns + ` FROM outbox_messages WHERE id = $1`

	msg, err := scanPostgreSQLMessage(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get outbox message")
	}
	return msg, nil
}

// ListUnpublished returns up to limit unpublished rows, oldest first.
func (r *PostgreSQLOutboxRepository) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE published_at IS NULL
			  ORDER BY created_at ASC, id ASC
			  LIMIT $1`

	return r.list(ctx, query, limit)
}

// ListFailed returns unpublished rows whose retry count reached maxRetries, oldest first.
func (r *PostgreSQLOutboxRepository) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	if err := validateMaxRetries(maxRetries); err != nil {
		return nil, err
	}

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE published_at IS NULL AND retry_count >= $1
			  ORDER BY created_at ASC, id ASC`

	return r.list(ctx, query, maxRetries)
}

// MarkPublished sets published_at once. Marking a published row again is a no-op.
func (r *PostgreSQLOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages SET published_at = $1 WHERE id = $2 AND published_at IS NULL`

	result, err := querier.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message as published")
	}
	return r.ensureAffected(ctx, result, id)
}

// IncrementRetry records a failed delivery attempt on an unpublished row.
// Published rows are left untouched.
func (r *PostgreSQLOutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET retry_count = retry_count + 1, last_error = $1, last_attempt_at = $2
			  WHERE id = $3 AND published_at IS NULL`

	result, err := querier.ExecContext(ctx, query, reason, r.now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment outbox message retry")
	}
	return r.ensureAffected(ctx, result, id)
}

// Requeue clears published_at so the row is delivered again. The retry count is kept.
func (r *PostgreSQLOutboxRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages SET published_at = NULL WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to requeue outbox message")
	}
	return r.ensureAffected(ctx, result, id)
}

// PurgePublishedOlderThan deletes published rows with published_at before olderThan.
// With dryRun it only counts them.
func (r *PostgreSQLOutboxRepository) PurgePublishedOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	if dryRun {
		var count int64
		query := `SELECT COUNT(*) FROM outbox_messages WHERE published_at IS NOT NULL AND published_at < $1`
		if err := querier.QueryRowContext(ctx, query, olderThan.UTC()).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count published outbox messages")
		}
		return count, nil
	}

	query := `DELETE FROM outbox_messages WHERE published_at IS NOT NULL AND published_at < $1`
	result, err := querier.ExecContext(ctx, query, olderThan.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to purge published outbox messages")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// CountUnpublished returns the size of the delivery backlog.
func (r *PostgreSQLOutboxRepository) CountUnpublished(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	query := `SELECT COUNT(*) FROM outbox_messages WHERE published_at IS NULL`
	if err := querier.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count unpublished outbox messages")
	}
	return count, nil
}

func (r *PostgreSQLOutboxRepository) list(ctx context.Context, query string, arg any) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list outbox messages")
	}
	defer rows.Close() //nolint:errcheck

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		msg, err := scanPostgreSQLMessage(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox message")
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox messages")
	}

	return messages, nil
}

// ensureAffected turns a zero-row update into ErrMessageNotFound when the row does not exist.
func (r *PostgreSQLOutboxRepository) ensureAffected(ctx context.Context, result sql.Result, id uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected > 0 {
		return nil
	}

	querier := database.GetTx(ctx, r.db)

	var exists int
	err = querier.QueryRowContext(ctx, `SELECT 1 FROM outbox_messages WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMessageNotFound
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to check outbox message")
	}
	return nil
}

func scanPostgreSQLMessage(row rowScanner) (*domain.Message, error) {
	var (
		msg     domain.Message
		payload []byte
	)

	err := row.Scan(&msg.ID, &msg.Envelope.ID, &msg.Envelope.EventType, &msg.Envelope.AggregateType,
		&msg.Envelope.AggregateID, &msg.Envelope.EventVersion, &msg.Envelope.OccurredAt,
		&msg.Envelope.CausationID, &msg.Envelope.CorrelationID, &payload, &msg.CreatedAt,
		&msg.PublishedAt, &msg.RetryCount, &msg.LastError, &msg.LastAttemptAt)
	if err != nil {
		return nil, err
	}

	msg.Envelope.Payload = payload
	normalizeTimes(&msg)
	return &msg, nil
}
