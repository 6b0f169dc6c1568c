// Package tasks holds the background jobs run by the scheduler.
package tasks

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"personabot/internal/admission"
	"personabot/internal/config"
)

// Func is the signature every scheduled task implements. The context
// comes from the scheduler and must be respected for cancellation.
type Func func(ctx context.Context) error

// Deps provides dependencies for scheduled tasks.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	DB        *sqlx.DB
	Admission *admission.Lock
}
