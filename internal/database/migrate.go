package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/allisson/eventledger/migrations"
)

// NewMigrate builds a migrate instance over an existing pool using the embedded migrations.
// The returned instance must not be closed by callers that keep using db, since
// closing it closes the underlying connection.
func NewMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {
	var (
		dir      string
		instance database.Driver
		err      error
	)

	switch driver {
	case DriverPostgres:
		dir = "postgresql"
		instance, err = migratepostgres.WithInstance(db, &migratepostgres.Config{})
	case DriverMySQL:
		dir = "mysql"
		instance, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case DriverSQLite:
		dir = "sqlite"
		instance, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	source, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up migration. No pending migrations is not an error.
func Migrate(db *sql.DB, driver string) error {
	m, err := NewMigrate(db, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
