package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// RunMaintenance reclaims space and refreshes planner statistics. VACUUM
// must run outside a transaction in SQLite.
func RunMaintenance(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		logger.WarnContext(ctx, "Failed to set busy timeout before maintenance", "error", err)
	}

	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	logger.InfoContext(ctx, "Database maintenance completed")
	return nil
}
