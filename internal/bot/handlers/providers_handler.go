package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewProvidersHandler returns the admin-only /providers command, which
// reports per-provider health.
func NewProvidersHandler(deps HandlerDeps) bot.HandlerFunc {
	return providersHandler{deps}.Handle
}

type providersHandler struct {
	deps HandlerDeps
}

func (h providersHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "providers")

	if update.Message == nil || update.Message.From == nil {
		return
	}

	snapshot := h.deps.Registry.HealthSnapshot()
	if len(snapshot) == 0 {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   h.deps.Config.Messages.NoProviders,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send providers reply", "error", err)
		}
		return
	}

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Provider health:\n")
	for _, name := range names {
		health := snapshot[name]
		state := "✅"
		if !health.IsWorking {
			state = "❌"
		}
		lastOK := "never"
		if !health.LastSuccessTime.IsZero() {
			lastOK = time.Since(health.LastSuccessTime).Round(time.Second).String() + " ago"
		}
		fmt.Fprintf(&sb, "%s %s: %d/%d ok, %d consecutive failures, last success %s\n",
			state, name, health.TotalSuccesses, health.TotalRequests,
			health.ConsecutiveFailures, lastOK)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send providers reply", "error", err)
	}
}
