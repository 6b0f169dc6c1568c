// Package telegram handles the setup and registration of Telegram bot
// handlers.
package telegram

import (
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"

	"personabot/internal/bot/handlers"
)

// NewTelegramBot creates the go-telegram/bot instance.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created")
	return b, nil
}

// applyMiddleware wraps a handler with middleware; the first entry in
// the slice becomes the outermost wrapper.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers the command handlers with the bot.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	log := logger.With("component", "handler_registry")

	for name, rh := range registered {
		if rh.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", rh.Pattern)
			continue
		}
		b.RegisterHandler(rh.HandlerType, rh.Pattern, rh.MatchType, applyMiddleware(rh.Handler, rh.Middleware))
		log.Debug("Registered handler", "command", name, "middleware_count", len(rh.Middleware))
	}

	log.Info("Telegram handlers registered", "count", len(registered))
	return nil
}
