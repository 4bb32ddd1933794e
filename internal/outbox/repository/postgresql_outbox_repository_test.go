package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/eventledger/internal/outbox/domain"
)

var messageColumnNames = []string{
	"id", "event_id", "event_type", "aggregate_type", "aggregate_id", "event_version", "occurred_at",
	"causation_id", "correlation_id", "payload", "created_at", "published_at", "retry_count", "last_error",
	"last_attempt_at",
}

func newPostgreSQLMock(t *testing.T) (*PostgreSQLOutboxRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewPostgreSQLOutboxRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return repo, mock
}

func TestNewPostgreSQLOutboxRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewPostgreSQLOutboxRepository(db)
	assert.Equal(t, db, repo.db)
	assert.NotNil(t, repo.now)
}

func TestPostgreSQLOutboxRepository_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		env := newEnvelope(t, "user.registered", "1")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
			WithArgs(sqlmock.AnyArg(), env.ID, env.EventType, env.AggregateType, env.AggregateID,
				env.EventVersion, env.OccurredAt, nil, "corr-1", []byte(env.Payload), repo.now().UTC()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		msg, err := repo.Append(ctx, env)

		require.NoError(t, err)
		assert.True(t, msg.Envelope.Equal(env))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UniqueViolation", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec("INSERT INTO outbox_messages").WillReturnError(&pq.Error{Code: "23505"})

		_, err := repo.Append(ctx, newEnvelope(t, "user.registered", "1"))

		assert.ErrorIs(t, err, domain.ErrDuplicateEvent)
	})

	t.Run("Error_Storage", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec("INSERT INTO outbox_messages").WillReturnError(errors.New("connection refused"))

		_, err := repo.Append(ctx, newEnvelope(t, "user.registered", "1"))

		assert.ErrorContains(t, err, "failed to append outbox message")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestPostgreSQLOutboxRepository_ListUnpublished(t *testing.T) {
	ctx := context.Background()
	repo, mock := newPostgreSQLMock(t)
	env := newEnvelope(t, "user.registered", "1")
	id := uuid.Must(uuid.NewV7())
	createdAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(messageColumnNames).AddRow(
		id.String(), env.ID.String(), env.EventType, env.AggregateType, env.AggregateID, env.EventVersion,
		env.OccurredAt, nil, "corr-1", []byte(env.Payload), createdAt, nil, 2, "timeout", createdAt,
	)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE published_at IS NULL") + ".*" + regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs(10).
		WillReturnRows(rows)

	messages, err := repo.ListUnpublished(ctx, 10)

	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, id, messages[0].ID)
	assert.True(t, env.Equal(messages[0].Envelope))
	assert.Equal(t, 2, messages[0].RetryCount)
	assert.Nil(t, messages[0].PublishedAt)
	require.NotNil(t, messages[0].LastError)
	assert.Equal(t, "timeout", *messages[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_ListUnpublishedError(t *testing.T) {
	repo, mock := newPostgreSQLMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListUnpublished(context.Background(), 10)

	assert.ErrorContains(t, err, "failed to list outbox messages")
}

func TestPostgreSQLOutboxRepository_ListFailed(t *testing.T) {
	repo, mock := newPostgreSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("retry_count >= $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(messageColumnNames))

	messages, err := repo.ListFailed(context.Background(), 5)

	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_MarkPublished(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())
	update := regexp.QuoteMeta("UPDATE outbox_messages SET published_at = $1 WHERE id = $2 AND published_at IS NULL")
	probe := regexp.QuoteMeta("SELECT 1 FROM outbox_messages WHERE id = $1")

	t.Run("Success", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec(update).WithArgs(repo.now().UTC(), id).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MarkPublished(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_AlreadyPublished", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(probe).WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		require.NoError(t, repo.MarkPublished(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(probe).WithArgs(id).WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.MarkPublished(ctx, id), domain.ErrMessageNotFound)
	})
}

func TestPostgreSQLOutboxRepository_IncrementRetry(t *testing.T) {
	repo, mock := newPostgreSQLMock(t)
	id := uuid.Must(uuid.NewV7())
	mock.ExpectExec(regexp.QuoteMeta("SET retry_count = retry_count + 1, last_error = $1, last_attempt_at = $2")).
		WithArgs("broker unavailable", repo.now().UTC(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementRetry(context.Background(), id, "broker unavailable"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_PurgePublishedOlderThan(t *testing.T) {
	ctx := context.Background()
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("DryRun", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM outbox_messages WHERE published_at IS NOT NULL")).
			WithArgs(cutoff).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

		count, err := repo.PurgePublishedOlderThan(ctx, cutoff, true)

		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox_messages WHERE published_at IS NOT NULL")).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, 7))

		count, err := repo.PurgePublishedOlderThan(ctx, cutoff, false)

		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLOutboxRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newPostgreSQLMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.Must(uuid.NewV7()))

	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}
