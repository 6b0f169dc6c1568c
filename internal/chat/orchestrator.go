// Package chat orchestrates one conversational turn: entitlement and
// balance gating, single-flight admission, prompt assembly, dispatch
// across the provider chain, and the post-success token debit.
package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"personabot/internal/admission"
	"personabot/internal/config"
	"personabot/internal/ledger"
	"personabot/internal/premium"
	"personabot/internal/provider"
	"personabot/internal/router"
)

const turnCost = 1

// Orchestrator wires the ledger, admission lock, premium store, router
// and history behind a single HandleTurn entry point.
type Orchestrator struct {
	ledger    ledger.Store
	admission *admission.Lock
	router    *router.Router
	premium   premium.Store
	history   HistoryStore
	ai        config.AIConfig
	messages  config.MessagesConfig
	logger    *slog.Logger
}

// New creates an Orchestrator from its injected dependencies.
func New(
	ledgerStore ledger.Store,
	lock *admission.Lock,
	r *router.Router,
	premiumStore premium.Store,
	history HistoryStore,
	ai config.AIConfig,
	messages config.MessagesConfig,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		ledger:    ledgerStore,
		admission: lock,
		router:    r,
		premium:   premiumStore,
		history:   history,
		ai:        ai,
		messages:  messages,
		logger:    logger.With("component", "orchestrator"),
	}
}

// HandleTurn processes one user message. The returned ok is false only
// when the message must be silently dropped; otherwise reply holds the
// text to send, whether it is AI content or a notice. onAdmitted, when
// non-nil, runs once the turn has passed every gate and is about to
// dispatch; callers use it to show a typing indicator only for turns
// that reach a provider.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID int64, text string, onAdmitted func()) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return o.messages.EmptyPrompt, true
	}

	log := o.logger.With("user_id", userID, "request_id", uuid.NewString())

	// Entitlement errors fall through to metered behavior rather than
	// blocking the conversation.
	unlimited, err := o.premium.IsUnlimited(ctx, userID)
	if err != nil {
		log.WarnContext(ctx, "Entitlement check failed, treating as metered", "error", err)
		unlimited = false
	}

	if !unlimited {
		if balance := o.ledger.GetBalance(ctx, userID); balance < turnCost {
			log.InfoContext(ctx, "Balance exhausted", "balance", balance)
			return o.messages.BalanceExhausted, true
		}
	}

	// One in-flight request per user. Messages arriving while the
	// marker exists are dropped, not queued. TryStart is atomic, so
	// two simultaneous messages cannot both pass the gate.
	if !o.admission.TryStart(userID) {
		log.InfoContext(ctx, "Dropping message, request already in flight")
		return "", false
	}
	defer o.admission.Finish(userID)

	if onAdmitted != nil {
		onAdmitted()
	}

	if err := o.history.Append(ctx, userID, provider.RoleUser, text); err != nil {
		log.WarnContext(ctx, "Failed to persist user message", "error", err)
	}

	window, err := o.promptWindow(ctx, userID, text)
	if err != nil {
		log.ErrorContext(ctx, "Failed to build prompt window", "error", err)
		return o.messages.GeneralError, true
	}

	outcome := o.router.Dispatch(ctx, provider.Request{
		Messages:    window,
		MaxTokens:   o.ai.MaxResponseTokens,
		Temperature: o.ai.Temperature,
	})

	switch outcome.Status {
	case router.StatusSuccess:
		return o.finishSuccess(ctx, log, userID, unlimited, outcome), true
	case router.StatusNoProviders:
		return o.messages.NoProviders, true
	default:
		return o.messages.AllUnavailable, true
	}
}

// finishSuccess persists the reply and debits the turn. The debit
// happens only after a successful dispatch; if the debit itself fails
// the reply is still delivered and the discrepancy is logged.
func (o *Orchestrator) finishSuccess(ctx context.Context, log *slog.Logger, userID int64, unlimited bool, outcome router.Outcome) string {
	reply := normalizeReply(outcome.Text)
	if reply == "" {
		log.WarnContext(ctx, "Reply empty after normalization", "provider", outcome.Provider)
		return o.messages.GeneralError
	}

	if err := o.history.Append(ctx, userID, provider.RoleAssistant, reply); err != nil {
		log.WarnContext(ctx, "Failed to persist assistant reply", "error", err)
	}

	if !unlimited {
		consumed, err := o.ledger.Consume(ctx, userID, turnCost)
		if err != nil {
			log.ErrorContext(ctx, "Debit failed after successful dispatch", "error", err)
		} else if !consumed {
			log.WarnContext(ctx, "Balance insufficient at debit time, reply delivered undebited")
		}
	}

	log.InfoContext(ctx, "Turn completed", "provider", outcome.Provider,
		"reply_len", len(reply))
	return reply
}

// promptWindow loads recent history and trims it to the configured pair
// window. The just-appended user message is part of the history read.
func (o *Orchestrator) promptWindow(ctx context.Context, userID int64, text string) ([]provider.Message, error) {
	history, err := o.history.Recent(ctx, userID, o.ai.HistoryPairs*2)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		// Persisting the user message failed; dispatch with it anyway.
		history = []StoredMessage{{UserID: userID, Role: provider.RoleUser, Content: text}}
	}
	return buildWindow(o.ai.Instruction, history, o.ai.HistoryPairs), nil
}

// StopChat clears the user's busy marker and wipes their history,
// reporting whether anything was active.
func (o *Orchestrator) StopChat(ctx context.Context, userID int64) bool {
	cleared := o.admission.Clear(userID)
	deleted, err := o.history.DeleteAll(ctx, userID)
	if err != nil {
		o.logger.WarnContext(ctx, "Failed to delete history", "user_id", userID, "error", err)
	}
	return cleared || deleted > 0
}
