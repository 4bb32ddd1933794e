// Package repository provides user persistence for PostgreSQL, MySQL and SQLite.
// Writes are driven by the unit of work stamp; updates are guarded by the stored version.
package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/eventledger/internal/user/domain"
)

// userColumns is the select list shared by every dialect; scanners rely on its order.
const userColumns = `id, name, email, password, version, created_at, created_by, updated_at, updated_by,
	deleted_at, deleted_by`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// checkVersion turns an update that matched no row into a not found or version conflict error.
func checkVersion(ctx context.Context, result sql.Result, exists func(ctx context.Context) (bool, error)) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	found, err := exists(ctx)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrUserNotFound
	}
	return domain.ErrUserVersionConflict
}
