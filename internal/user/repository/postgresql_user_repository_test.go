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

	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
	"github.com/allisson/eventledger/internal/user/domain"
)

var userColumnNames = []string{
	"id", "name", "email", "password", "version", "created_at", "created_by", "updated_at", "updated_by",
	"deleted_at", "deleted_by",
}

func newPostgreSQLMock(t *testing.T) (*PostgreSQLUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgreSQLUserRepository(db), mock
}

func TestPostgreSQLUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		user := newUser(t, "ada@example.com")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(user.ID(), "Ada", "ada@example.com", "hash", int64(1), at, "admin", nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, user, createStamp(at)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UniqueViolation", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, newUser(t, "ada@example.com"), createStamp(at))
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("Error_Storage", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("connection refused"))

		err := repo.Create(ctx, newUser(t, "ada@example.com"), createStamp(at))
		assert.ErrorContains(t, err, "failed to create user")
	})
}

func TestPostgreSQLUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stamp := outboxUsecase.Stamp{Actor: "editor", At: at, ExpectedVersion: 3, Version: 4}

	t.Run("Success", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		user := newUser(t, "ada@example.com")

		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
			WithArgs("Ada", "ada@example.com", "hash", int64(4), at, "editor", nil, nil, user.ID(), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, user, stamp))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_VersionConflict", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		user := newUser(t, "ada@example.com")

		mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs(user.ID()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		assert.ErrorIs(t, repo.Update(ctx, user, stamp), domain.ErrUserVersionConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		user := newUser(t, "ada@example.com")

		mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		assert.ErrorIs(t, repo.Update(ctx, user, stamp), domain.ErrUserNotFound)
	})
}

func TestPostgreSQLUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(userColumnNames).
				AddRow(id, "Ada", "ada@example.com", "hash", int64(2), at, "admin", at, "editor", at, "admin"))

		user, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, user.ID())
		assert.Equal(t, int64(2), user.Version())
		assert.Equal(t, "editor", user.Audit().UpdatedBy)
		assert.True(t, user.IsDeleted())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectQuery("SELECT").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("Error_ByEmailNotFound", func(t *testing.T) {
		repo, mock := newPostgreSQLMock(t)
		mock.ExpectQuery("SELECT").WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
