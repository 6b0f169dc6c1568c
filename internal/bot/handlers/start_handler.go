package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	log.InfoContext(ctx, "Handling /start command",
		"chat_id", update.Message.Chat.ID, "user_id", userID)

	// Touching the balance lazily creates the account with the default
	// starting tokens, so the welcome can show it.
	balance := h.deps.Ledger.GetBalance(ctx, userID)

	text := h.deps.Config.Messages.Welcome
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message",
			"error", err, "chat_id", update.Message.Chat.ID)
		return
	}
	log.DebugContext(ctx, "Sent welcome", "user_id", userID, "balance", balance)
}
