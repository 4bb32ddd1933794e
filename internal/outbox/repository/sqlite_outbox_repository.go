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

// SQLiteOutboxRepository stores ledger rows in SQLite. Ids are stored as text and
// timestamps as unix nanoseconds so ordering by created_at is exact.
type SQLiteOutboxRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteOutboxRepository creates a new SQLiteOutboxRepository.
func NewSQLiteOutboxRepository(db *sql.DB) *SQLiteOutboxRepository {
	return &SQLiteOutboxRepository{db: db, now: time.Now}
}

// Append inserts one unpublished row wrapping envelope.
func (r *SQLiteOutboxRepository) Append(
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
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	_, err = querier.ExecContext(ctx, query, msg.ID.String(), envelope.ID.String(), envelope.EventType,
		envelope.AggregateType, envelope.AggregateID, envelope.EventVersion, toNanos(envelope.OccurredAt),
		envelope.CausationID, envelope.CorrelationID, []byte(envelope.Payload), toNanos(msg.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateEvent
		}
		return nil, apperrors.Wrap(err, "failed to append outbox message")
	}

	return msg, nil
}

// GetByID returns a single row.
func (r *SQLiteOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + messageColumns + ` FROM outbox_messages WHERE id = ?`

	msg, err := scanSQLiteMessage(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get outbox message")
	}
	return msg, nil
}

// ListUnpublished returns up to limit unpublished rows, oldest first.
func (r *SQLiteOutboxRepository) ListUnpublished(ctx context.Context, limit int) ([]*domain.Message, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE published_at IS NULL
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?`

	return r.list(ctx, query, limit)
}

// ListFailed returns unpublished rows whose retry count reached maxRetries, oldest first.
func (r *SQLiteOutboxRepository) ListFailed(ctx context.Context, maxRetries int) ([]*domain.Message, error) {
	if err := validateMaxRetries(maxRetries); err != nil {
		return nil, err
	}

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE published_at IS NULL AND retry_count >= ?
			  ORDER BY created_at ASC, id ASC`

	return r.list(ctx, query, maxRetries)
}

// MarkPublished sets published_at once. Marking a published row again is a no-op.
func (r *SQLiteOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages SET published_at = ? WHERE id = ? AND published_at IS NULL`

	result, err := querier.ExecContext(ctx, query, toNanos(r.now()), id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message as published")
	}
	return r.ensureAffected(ctx, result, id)
}

// IncrementRetry records a failed delivery attempt on an unpublished row.
// Published rows are left untouched.
func (r *SQLiteOutboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID, reason string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET retry_count = retry_count + 1, last_error = ?, last_attempt_at = ?
			  WHERE id = ? AND published_at IS NULL`

	result, err := querier.ExecContext(ctx, query, reason, toNanos(r.now()), id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to increment outbox message retry")
	}
	return r.ensureAffected(ctx, result, id)
}

// Requeue clears published_at so the row is delivered again. The retry count is kept.
func (r *SQLiteOutboxRepository) Requeue(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `UPDATE outbox_messages SET published_at = NULL WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to requeue outbox message")
	}
	return r.ensureAffected(ctx, result, id)
}

// PurgePublishedOlderThan deletes published rows with published_at before olderThan.
// With dryRun it only counts them.
func (r *SQLiteOutboxRepository) PurgePublishedOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	if dryRun {
		var count int64
		query := `SELECT COUNT(*) FROM outbox_messages WHERE published_at IS NOT NULL AND published_at < ?`
		if err := querier.QueryRowContext(ctx, query, toNanos(olderThan)).Scan(&count); err != nil {
			return 0, apperrors.Wrap(err, "failed to count published outbox messages")
		}
		return count, nil
	}

	query := `DELETE FROM outbox_messages WHERE published_at IS NOT NULL AND published_at < ?`
	result, err := querier.ExecContext(ctx, query, toNanos(olderThan))
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
func (r *SQLiteOutboxRepository) CountUnpublished(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	query := `SELECT COUNT(*) FROM outbox_messages WHERE published_at IS NULL`
	if err := querier.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count unpublished outbox messages")
	}
	return count, nil
}

func (r *SQLiteOutboxRepository) list(ctx context.Context, query string, arg any) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list outbox messages")
	}
	defer rows.Close() //nolint:errcheck

	messages := make([]*domain.Message, 0)
	for rows.Next() {
		msg, err := scanSQLiteMessage(rows)
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
func (r *SQLiteOutboxRepository) ensureAffected(ctx context.Context, result sql.Result, id uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected > 0 {
		return nil
	}

	querier := database.GetTx(ctx, r.db)

	var exists int
	err = querier.QueryRowContext(ctx, `SELECT 1 FROM outbox_messages WHERE id = ?`, id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrMessageNotFound
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to check outbox message")
	}
	return nil
}

func scanSQLiteMessage(row rowScanner) (*domain.Message, error) {
	var (
		msg                    domain.Message
		id, eventID            string
		occurredAt, createdAt  int64
		publishedAt, attemptAt sql.NullInt64
		payload                []byte
	)

	err := row.Scan(&id, &eventID, &msg.Envelope.EventType, &msg.Envelope.AggregateType,
		&msg.Envelope.AggregateID, &msg.Envelope.EventVersion, &occurredAt,
		&msg.Envelope.CausationID, &msg.Envelope.CorrelationID, &payload, &createdAt,
		&publishedAt, &msg.RetryCount, &msg.LastError, &attemptAt)
	if err != nil {
		return nil, err
	}

	if msg.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if msg.Envelope.ID, err = uuid.Parse(eventID); err != nil {
		return nil, err
	}

	msg.Envelope.OccurredAt = fromNanos(occurredAt)
	msg.Envelope.Payload = payload
	msg.CreatedAt = fromNanos(createdAt)
	msg.PublishedAt = fromNullNanos(publishedAt)
	msg.LastAttemptAt = fromNullNanos(attemptAt)
	return &msg, nil
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
