// Package ledger implements the durable per-user token balance that
// gates and charges for AI requests. Balances are stored in SQLite and
// are created lazily with a configurable starting value on first
// access.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	busyRetries    = 3
	busyRetryDelay = 100 * time.Millisecond
)

// Store defines the token ledger operations.
type Store interface {
	// GetBalance returns the user's balance, creating the record at the
	// configured default on first access. It never fails the caller: on
	// persistent storage errors it returns 0, because balance checks
	// must not block the conversation.
	GetBalance(ctx context.Context, userID int64) int64

	// SetBalance sets the balance, clamping negative amounts to 0.
	SetBalance(ctx context.Context, userID int64, amount int64) error

	// Add adjusts the balance by amount (which may be negative), never
	// letting it drop below 0. Returns the new balance.
	Add(ctx context.Context, userID int64, amount int64) (int64, error)

	// Consume debits amount tokens if the balance covers it. Returns
	// false without mutation when the balance is insufficient. The
	// decrement is a single conditional update, so concurrent consumes
	// for one user cannot overdraw.
	Consume(ctx context.Context, userID int64, amount int64) (bool, error)
}

type sqlxStore struct {
	db            *sqlx.DB
	logger        *slog.Logger
	defaultTokens int64
}

// NewStore creates a ledger Store backed by sqlx with the given lazy
// starting balance.
func NewStore(db *sqlx.DB, logger *slog.Logger, defaultTokens int64) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if defaultTokens < 0 {
		defaultTokens = 0
	}
	return &sqlxStore{
		db:            db,
		logger:        logger.With("component", "ledger"),
		defaultTokens: defaultTokens,
	}
}

func (s *sqlxStore) GetBalance(ctx context.Context, userID int64) int64 {
	for attempt := 1; attempt <= busyRetries; attempt++ {
		balance, err := s.getOrCreate(ctx, userID)
		if err == nil {
			return balance
		}

		if isBusy(err) && attempt < busyRetries {
			s.logger.DebugContext(ctx, "Database busy reading balance, retrying",
				"user_id", userID, "attempt", attempt)
			select {
			case <-time.After(busyRetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return 0
			}
			continue
		}

		s.logger.ErrorContext(ctx, "Failed to read balance, returning 0",
			"user_id", userID, "error", err)
		return 0
	}
	return 0
}

func (s *sqlxStore) getOrCreate(ctx context.Context, userID int64) (int64, error) {
	var raw sql.NullString
	err := s.db.GetContext(ctx, &raw,
		`SELECT tokens FROM token_balances WHERE user_id = ?`, userID)
	if err == nil {
		return coerceTokens(ctx, s.logger, userID, raw), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to select balance for user %d: %w", userID, err)
	}

	// First access: insert-if-absent, then re-read so a concurrent
	// creator's value wins.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO token_balances (user_id, tokens, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, s.defaultTokens)
	if err != nil {
		return 0, fmt.Errorf("failed to create balance for user %d: %w", userID, err)
	}

	err = s.db.GetContext(ctx, &raw,
		`SELECT tokens FROM token_balances WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to re-read balance for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Created token account",
		"user_id", userID, "tokens", s.defaultTokens)
	return coerceTokens(ctx, s.logger, userID, raw), nil
}

func (s *sqlxStore) SetBalance(ctx context.Context, userID int64, amount int64) error {
	if amount < 0 {
		amount = 0
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_balances (user_id, tokens, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			tokens = excluded.tokens,
			updated_at = CURRENT_TIMESTAMP`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("failed to set balance for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Balance set", "user_id", userID, "tokens", amount)
	return nil
}

func (s *sqlxStore) Add(ctx context.Context, userID int64, amount int64) (int64, error) {
	current, exists, err := s.readCurrent(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		current = s.defaultTokens
	}

	newBalance := current + amount
	if newBalance < 0 {
		newBalance = 0
	}

	if err := s.SetBalance(ctx, userID, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *sqlxStore) Consume(ctx context.Context, userID int64, amount int64) (bool, error) {
	if amount <= 0 {
		return true, nil
	}

	// Seed the account first so a brand-new user consumes from the
	// default starting balance.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_balances (user_id, tokens, created_at, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, s.defaultTokens)
	if err != nil {
		return false, fmt.Errorf("failed to seed balance for user %d: %w", userID, err)
	}

	// Conditional decrement: check and debit in one statement, so two
	// concurrent consumes cannot both pass the balance check.
	res, err := s.db.ExecContext(ctx, `
		UPDATE token_balances
		SET tokens = tokens - ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND tokens >= ?`,
		amount, userID, amount)
	if err != nil {
		return false, fmt.Errorf("failed to consume tokens for user %d: %w", userID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check consume result for user %d: %w", userID, err)
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Insufficient balance", "user_id", userID, "amount", amount)
		return false, nil
	}

	s.logger.InfoContext(ctx, "Tokens consumed", "user_id", userID, "amount", amount)
	return true, nil
}

// readCurrent returns the stored balance, whether a row exists, and
// coerces corrupt legacy values to 0.
func (s *sqlxStore) readCurrent(ctx context.Context, userID int64) (int64, bool, error) {
	var raw sql.NullString
	err := s.db.GetContext(ctx, &raw,
		`SELECT tokens FROM token_balances WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read balance for user %d: %w", userID, err)
	}
	return coerceTokens(ctx, s.logger, userID, raw), true, nil
}

// coerceTokens tolerates legacy rows where tokens was stored as NULL,
// an empty string, or other non-numeric junk.
func coerceTokens(ctx context.Context, logger *slog.Logger, userID int64, raw sql.NullString) int64 {
	if !raw.Valid || raw.String == "" {
		logger.WarnContext(ctx, "Empty token value in ledger, treating as 0", "user_id", userID)
		return 0
	}
	value, err := strconv.ParseInt(raw.String, 10, 64)
	if err != nil {
		logger.WarnContext(ctx, "Non-numeric token value in ledger, treating as 0",
			"user_id", userID, "value", raw.String)
		return 0
	}
	if value < 0 {
		return 0
	}
	return value
}

func isBusy(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "database is locked")
}
