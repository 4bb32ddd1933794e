package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	aggregateDomain "github.com/allisson/eventledger/internal/aggregate/domain"
	"github.com/allisson/eventledger/internal/database"
	apperrors "github.com/allisson/eventledger/internal/errors"
	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
	"github.com/allisson/eventledger/internal/user/domain"
)

// SQLiteUserRepository handles user persistence for SQLite. Ids are stored as text and
// timestamps as unix nanoseconds.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{
		db: db,
	}
}

// Create inserts a new user stamped with the unit of work actor, time and version.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error {
	querier := database.GetTx(ctx, r.db)
	audit := user.Audit()
	at := stamp.At.UnixNano()

	query := `INSERT INTO users (` + userColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query, user.ID().String(), user.Name, user.Email, user.Password,
		stamp.Version, at, stamp.Actor, at, stamp.Actor, nullableNanos(audit.DeletedAt), audit.DeletedBy)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Update writes the user when the stored version still equals stamp.ExpectedVersion.
func (r *SQLiteUserRepository) Update(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error {
	querier := database.GetTx(ctx, r.db)
	audit := user.Audit()

	query := `UPDATE users SET name = ?, email = ?, password = ?, version = ?, updated_at = ?,
			  updated_by = ?, deleted_at = ?, deleted_by = ?
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, user.Name, user.Email, user.Password, stamp.Version,
		stamp.At.UnixNano(), stamp.Actor, nullableNanos(audit.DeletedAt), audit.DeletedBy, user.ID().String(),
		stamp.ExpectedVersion)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update user")
	}

	return checkVersion(ctx, result, func(ctx context.Context) (bool, error) {
		var exists bool
		err := querier.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, user.ID().String()).
			Scan(&exists)
		return exists, err
	})
}

// GetByID retrieves a user by ID
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanSQLiteUser(querier.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanSQLiteUser(querier.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by email")
	}
	return user, nil
}

func nullableNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func scanSQLiteUser(row rowScanner) (*domain.User, error) {
	var (
		rawID                 string
		name, email, password string
		version               int64
		createdAt, updatedAt  int64
		audit                 aggregateDomain.Audit
		deletedAt             sql.NullInt64
		deletedBy             sql.NullString
	)

	err := row.Scan(&rawID, &name, &email, &password, &version, &createdAt, &audit.CreatedBy,
		&updatedAt, &audit.UpdatedBy, &deletedAt, &deletedBy)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse user id")
	}

	audit.CreatedAt = time.Unix(0, createdAt).UTC()
	audit.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if deletedAt.Valid {
		at := time.Unix(0, deletedAt.Int64).UTC()
		audit.DeletedAt = &at
	}
	if deletedBy.Valid {
		audit.DeletedBy = &deletedBy.String
	}

	return domain.RehydrateUser(id, name, email, password, version, audit), nil
}
