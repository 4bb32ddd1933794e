package commands

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/allisson/eventledger/internal/database"
)

// RunMigrations applies the embedded migrations for driver to db.
// No pending migrations is not an error.
func RunMigrations(logger *slog.Logger, db *sql.DB, driver string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	if err := database.Migrate(db, driver); err != nil {
		return fmt.Errorf("failed to migrate %s database: %w", driver, err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
