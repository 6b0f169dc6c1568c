package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	aiProcessingTimeout = 2 * time.Minute
	sendMessageTimeout  = 10 * time.Second
)

// NewChatHandler returns the default handler that routes private text
// messages through the conversation orchestrator.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	return chatHandler{deps}.Handle
}

type chatHandler struct {
	deps HandlerDeps
}

func (h chatHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "chat")

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	if msg.Chat.Type != models.ChatTypePrivate {
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	turnCtx, cancel := context.WithTimeout(ctx, aiProcessingTimeout)
	defer cancel()

	// Typing shows only once the turn is admitted; dropped or gated
	// messages must not suggest a reply is coming.
	typing := func() {
		_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
	}

	reply, ok := h.deps.Orchestrator.HandleTurn(turnCtx, userID, msg.Text, typing)
	if !ok {
		log.DebugContext(ctx, "Message dropped", "user_id", userID)
		return
	}
	if reply == "" {
		reply = h.deps.Config.Messages.GeneralError
	}

	sendCtx, cancelSend := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancelSend()
	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}
