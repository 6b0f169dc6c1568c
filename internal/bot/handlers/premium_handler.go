package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewPremiumHandler returns the admin-only /premium command, which
// activates a subscription: /premium <user_id> <plan> [days]. Zero or
// omitted days means no expiry.
func NewPremiumHandler(deps HandlerDeps) bot.HandlerFunc {
	return premiumHandler{deps}.Handle
}

type premiumHandler struct {
	deps HandlerDeps
}

func (h premiumHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "premium")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			log.ErrorContext(ctx, "Failed to send premium reply", "error", err, "chat_id", chatID)
		}
	}

	fields := strings.Fields(update.Message.Text)
	if len(fields) < 3 || len(fields) > 4 {
		reply("Usage: /premium <user_id> <plan> [days]")
		return
	}

	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || targetID <= 0 {
		reply("Invalid user ID: " + fields[1])
		return
	}
	plan, err := strconv.Atoi(fields[2])
	if err != nil || plan < 1 {
		reply("Invalid plan: " + fields[2])
		return
	}

	var duration time.Duration
	if len(fields) == 4 {
		days, err := strconv.Atoi(fields[3])
		if err != nil || days < 0 {
			reply("Invalid days: " + fields[3])
			return
		}
		duration = time.Duration(days) * 24 * time.Hour
	}

	if err := h.deps.Premium.Activate(ctx, targetID, plan, duration); err != nil {
		log.ErrorContext(ctx, "Failed to activate subscription",
			"target_id", targetID, "plan", plan, "error", err)
		reply(h.deps.Config.Messages.GeneralError)
		return
	}

	reply(fmt.Sprintf("✅ Plan %d activated for user %d", plan, targetID))
}
