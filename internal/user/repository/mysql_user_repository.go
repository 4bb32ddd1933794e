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

// MySQLUserRepository handles user persistence for MySQL. Ids are stored as BINARY(16).
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{
		db: db,
	}
}

// Create inserts a new user stamped with the unit of work actor, time and version.
func (r *MySQLUserRepository) Create(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error {
	querier := database.GetTx(ctx, r.db)
	audit := user.Audit()

	id, err := user.ID().MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `INSERT INTO users (` + userColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, user.Name, user.Email, user.Password, stamp.Version,
		stamp.At, stamp.Actor, stamp.At, stamp.Actor, audit.DeletedAt, audit.DeletedBy)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Update writes the user when the stored version still equals stamp.ExpectedVersion.
func (r *MySQLUserRepository) Update(ctx context.Context, user *domain.User, stamp outboxUsecase.Stamp) error {
	querier := database.GetTx(ctx, r.db)
	audit := user.Audit()

	id, err := user.ID().MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `UPDATE users SET name = ?, email = ?, password = ?, version = ?, updated_at = ?,
			  updated_by = ?, deleted_at = ?, deleted_by = ?
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, user.Name, user.Email, user.Password, stamp.Version, stamp.At,
		stamp.Actor, audit.DeletedAt, audit.DeletedBy, id, stamp.ExpectedVersion)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to update user")
	}

	return checkVersion(ctx, result, func(ctx context.Context) (bool, error) {
		var exists bool
		err := querier.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
		return exists, err
	})
}

// GetByID retrieves a user by ID
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	binaryID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanMySQLUser(querier.QueryRowContext(ctx, query, binaryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanMySQLUser(querier.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by email")
	}
	return user, nil
}

func scanMySQLUser(row rowScanner) (*domain.User, error) {
	var (
		binaryID              []byte
		name, email, password string
		version               int64
		audit                 aggregateDomain.Audit
		deletedAt             sql.NullTime
		deletedBy             sql.NullString
	)

	err := row.Scan(&binaryID, &name, &email, &password, &version, &audit.CreatedAt, &audit.CreatedBy,
		&audit.UpdatedAt, &audit.UpdatedBy, &deletedAt, &deletedBy)
	if err != nil {
		return nil, err
	}

	var id uuid.UUID
	if err := id.UnmarshalBinary(binaryID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
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
