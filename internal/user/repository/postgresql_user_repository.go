package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	aggregateDomain "github.com/allisson/eventledger/internal/aggregate/domain"
	"github.com/allisson/eventledger/internal/database"
	apperrors "github.com/allisson/eventledger/internal/errors"
	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
	"github.com/allisson/eventledger/internal/user/domain"
)

// PostgreSQLUserRepository handles user persistence for PostgreSQL
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{
		db: db,
	}
}

// Create inserts a new user stamped with the unit of work actor, time and version.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error {
	querier := database.GetTx(ctx, r.db)
	audit := user.Audit()

	query := `INSERT INTO users (` + userColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $6, $7, $8, $9)`

	_, err := querier.ExecContext(ctx, query, user.ID(), user.Name, user.Email, user.Password, stamp.Version,
		stamp.At, stamp.Actor, audit.DeletedAt, audit.DeletedBy)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Update writes the user when the stored version still equals stamp.ExpectedVersion.
func (r *PostgreSQLUserRepository) Update(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error {
	querier := database.GetTx(ctx, r.db)
	audit := user.Audit()

	query := `UPDATE users SET name = $1, email = $2, password = $3, version = $4, updated_at = $5,
			  updated_by = $6, deleted_at = $7, deleted_by = $8
			  WHERE id = $9 AND version = $10`

	result, err := querier.ExecContext(ctx, query, user.Name, user.Email, user.Password, stamp.Version, stamp.At,
		stamp.Actor, audit.DeletedAt, audit.DeletedBy, user.ID(), stamp.ExpectedVersion)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update user")
	}

	return checkVersion(ctx, result, func(ctx context.Context) (bool, error) {
		var exists bool
		err := querier.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, user.ID()).
			Scan(&exists)
		return exists, err
	})
}

// GetByID retrieves a user by ID
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanPostgreSQLUser(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanPostgreSQLUser(querier.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by email")
	}
	return user, nil
}

func scanPostgreSQLUser(row rowScanner) (*domain.User, error) {
	var (
		id                    uuid.UUID
		name, email, password string
		version               int64
		audit                 aggregateDomain.Audit
		deletedAt             sql.NullTime
		deletedBy             sql.NullString
	)

	err := row.Scan(&id, &name, &email, &password, &version, &audit.CreatedAt, &audit.CreatedBy,
		&audit.UpdatedAt, &audit.UpdatedBy, &deletedAt, &deletedBy)
	if err != nil {
		return nil, err
	}

	audit.CreatedAt = audit.CreatedAt.UTC()
	audit.UpdatedAt = audit.UpdatedAt.UTC()
	if deletedAt.Valid {
		at := deletedAt.Time.UTC()
		audit.DeletedAt = &at
	}
	if deletedBy.Valid {
		audit.DeletedBy = &deletedBy.String
	}

	return domain.RehydrateUser(id, name, email, password, version, audit), nil
}
