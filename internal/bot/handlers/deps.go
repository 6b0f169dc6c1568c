package handlers

import (
	"log/slog"

	"personabot/internal/chat"
	"personabot/internal/config"
	"personabot/internal/ledger"
	"personabot/internal/premium"
	"personabot/internal/provider"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Orchestrator *chat.Orchestrator
	Ledger       ledger.Store
	Premium      premium.Store
	Registry     *provider.Registry
}
