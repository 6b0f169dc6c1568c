package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewGrantHandler returns the admin-only /grant command, which adds
// tokens to a user's balance: /grant <user_id> <amount>.
func NewGrantHandler(deps HandlerDeps) bot.HandlerFunc {
	return grantHandler{deps}.Handle
}

type grantHandler struct {
	deps HandlerDeps
}

func (h grantHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "grant")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send grant reply", "error", err, "chat_id", chatID)
		}
	}

	fields := strings.Fields(update.Message.Text)
	if len(fields) != 3 {
		reply("Usage: /grant <user_id> <amount>")
		return
	}

	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || targetID <= 0 {
		reply("Invalid user ID: " + fields[1])
		return
	}
	amount, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		reply("Invalid amount: " + fields[2])
		return
	}

	newBalance, err := h.deps.Ledger.Add(ctx, targetID, amount)
	if err != nil {
		log.ErrorContext(ctx, "Failed to grant tokens",
			"target_id", targetID, "amount", amount, "error", err)
		reply(h.deps.Config.Messages.GeneralError)
		return
	}

	log.InfoContext(ctx, "Tokens granted",
		"target_id", targetID, "amount", amount, "new_balance", newBalance)
	reply(fmt.Sprintf("✅ User %d now has %d tokens", targetID, newBalance))
}
