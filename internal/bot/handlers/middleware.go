// Package handlers contains Telegram command and message handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly rejects messages from anyone but the configured admin with
// a not-authorized notice.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, b, update)
				return
			}

			if update.Message.From.ID != deps.Config.Telegram.AdminID {
				log := deps.Logger.With("middleware", "admin_only")
				log.WarnContext(ctx, "Unauthorized access attempt",
					"user_id", update.Message.From.ID, "chat_id", update.Message.Chat.ID)

				if _, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   deps.Config.Messages.NotAuthorized,
				}); err != nil {
					log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err)
				}
				return
			}

			next(ctx, b, update)
		}
	}
}
