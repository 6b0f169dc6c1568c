package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"personabot/internal/premium"
)

// NewBalanceHandler returns a handler for the /balance command.
func NewBalanceHandler(deps HandlerDeps) bot.HandlerFunc {
	return balanceHandler{deps}.Handle
}

type balanceHandler struct {
	deps HandlerDeps
}

func (h balanceHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "balance")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID

	text := fmt.Sprintf("💰 Your balance: %d tokens", h.deps.Ledger.GetBalance(ctx, userID))

	sub, err := h.deps.Premium.Status(ctx, userID)
	if err != nil {
		log.WarnContext(ctx, "Failed to read subscription status", "user_id", userID, "error", err)
	} else if sub != nil && sub.IsActive && sub.PlanType == premium.PlanUnlimited {
		text = "💎 Unlimited plan active, no tokens needed"
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send balance message", "error", err, "user_id", userID)
	}
}
