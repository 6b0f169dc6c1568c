package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStopChatHandler returns a handler for the /stopchat command. It
// clears the user's busy marker and wipes their conversation history.
func NewStopChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return stopChatHandler{deps}.Handle
}

type stopChatHandler struct {
	deps HandlerDeps
}

func (h stopChatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stopchat")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID

	text := h.deps.Config.Messages.NoActiveChat
	if h.deps.Orchestrator.StopChat(ctx, userID) {
		text = h.deps.Config.Messages.ChatStopped
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send stopchat reply", "error", err, "user_id", userID)
	}
}
