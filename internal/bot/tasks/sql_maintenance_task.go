package tasks

import (
	"context"
	"fmt"
	"time"

	"personabot/internal/database"
)

// newSQLMaintenanceTask runs periodic VACUUM and ANALYZE.
func newSQLMaintenanceTask(deps Deps) Func {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		start := time.Now()
		if err := database.RunMaintenance(ctx, deps.DB, log); err != nil {
			return fmt.Errorf("sql maintenance failed: %w", err)
		}
		log.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(start))
		return nil
	}
}
