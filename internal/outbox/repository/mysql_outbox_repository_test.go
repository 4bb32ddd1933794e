package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/eventledger/internal/outbox/domain"
)

func newMySQLMock(t *testing.T) (*MySQLOutboxRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewMySQLOutboxRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return repo, mock
}

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLOutboxRepository_Append(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_BinaryIDs", func(t *testing.T) {
		repo, mock := newMySQLMock(t)
		env := newEnvelope(t, "user.registered", "1")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
			WithArgs(sqlmock.AnyArg(), mustBinary(t, env.ID), env.EventType, env.AggregateType, env.AggregateID,
				env.EventVersion, env.OccurredAt, nil, "corr-1", []byte(env.Payload), repo.now().UTC()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := repo.Append(ctx, env)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_DuplicateEntry", func(t *testing.T) {
		repo, mock := newMySQLMock(t)
		mock.ExpectExec("INSERT INTO outbox_messages").WillReturnError(&mysql.MySQLError{Number: 1062})

		_, err := repo.Append(ctx, newEnvelope(t, "user.registered", "1"))

		assert.ErrorIs(t, err, domain.ErrDuplicateEvent)
	})
}

func TestMySQLOutboxRepository_ListUnpublished(t *testing.T) {
	repo, mock := newMySQLMock(t)
	env := newEnvelope(t, "user.registered", "1")
	id := uuid.Must(uuid.NewV7())
	createdAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(messageColumnNames).AddRow(
		mustBinary(t, id), mustBinary(t, env.ID), env.EventType, env.AggregateType, env.AggregateID,
		env.EventVersion, env.OccurredAt, nil, "corr-1", []byte(env.Payload), createdAt, nil, 0, nil, nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).WithArgs(25).WillReturnRows(rows)

	messages, err := repo.ListUnpublished(context.Background(), 25)

	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, id, messages[0].ID)
	assert.True(t, env.Equal(messages[0].Envelope))
	assert.Nil(t, messages[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOutboxRepository_MarkPublished(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())
	update := regexp.QuoteMeta("UPDATE outbox_messages SET published_at = ? WHERE id = ? AND published_at IS NULL")
	probe := regexp.QuoteMeta("SELECT 1 FROM outbox_messages WHERE id = ?")

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMySQLMock(t)
		mock.ExpectExec(update).WithArgs(repo.now().UTC(), mustBinary(t, id)).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MarkPublished(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		repo, mock := newMySQLMock(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(probe).WithArgs(mustBinary(t, id)).WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.MarkPublished(ctx, id), domain.ErrMessageNotFound)
	})
}

func TestMySQLOutboxRepository_Requeue(t *testing.T) {
	repo, mock := newMySQLMock(t)
	id := uuid.Must(uuid.NewV7())
	// An unpublished row matches without changing, so MySQL reports zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_messages SET published_at = NULL WHERE id = ?")).
		WithArgs(mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM outbox_messages WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	require.NoError(t, repo.Requeue(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLOutboxRepository_CountUnpublished(t *testing.T) {
	repo, mock := newMySQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM outbox_messages WHERE published_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountUnpublished(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
