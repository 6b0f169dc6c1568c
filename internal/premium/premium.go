// Package premium stores subscription entitlements. The unlimited plan
// bypasses token metering entirely.
package premium

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// PlanUnlimited is the plan type whose holders skip the token ledger.
const PlanUnlimited = 4

// Subscription is one user's premium record.
type Subscription struct {
	UserID      int64      `db:"user_id"`
	IsActive    bool       `db:"is_active"`
	PlanType    int        `db:"plan_type"`
	ActivatedAt time.Time  `db:"activated_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
}

// Expired reports whether the subscription has a passed expiry.
func (s Subscription) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Store defines the entitlement operations.
type Store interface {
	// IsUnlimited reports whether the user holds an active, unexpired
	// unlimited subscription. Expired rows are deactivated on read.
	IsUnlimited(ctx context.Context, userID int64) (bool, error)

	// Activate creates or replaces the user's subscription. A zero
	// duration means no expiry.
	Activate(ctx context.Context, userID int64, planType int, duration time.Duration) error

	// Status returns the user's subscription, or nil when none exists.
	Status(ctx context.Context, userID int64) (*Subscription, error)
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a premium Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "premium"),
		now:    time.Now,
	}
}

func (s *sqlxStore) IsUnlimited(ctx context.Context, userID int64) (bool, error) {
	sub, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	if sub == nil || !sub.IsActive {
		return false, nil
	}

	if sub.Expired(s.now()) {
		if err := s.deactivate(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "Failed to deactivate expired subscription",
				"user_id", userID, "error", err)
		}
		return false, nil
	}

	return sub.PlanType == PlanUnlimited, nil
}

func (s *sqlxStore) Activate(ctx context.Context, userID int64, planType int, duration time.Duration) error {
	now := s.now()
	var expiresAt *time.Time
	if duration > 0 {
		t := now.Add(duration)
		expiresAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO premium_subscriptions (user_id, is_active, plan_type, activated_at, expires_at)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			is_active = 1,
			plan_type = excluded.plan_type,
			activated_at = excluded.activated_at,
			expires_at = excluded.expires_at`,
		userID, planType, now, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to activate subscription for user %d: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "Subscription activated",
		"user_id", userID, "plan_type", planType, "expires_at", expiresAt)
	return nil
}

func (s *sqlxStore) Status(ctx context.Context, userID int64) (*Subscription, error) {
	var sub Subscription
	err := s.db.GetContext(ctx, &sub, `
		SELECT user_id, is_active, plan_type, activated_at, expires_at
		FROM premium_subscriptions WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription for user %d: %w", userID, err)
	}
	return &sub, nil
}

func (s *sqlxStore) deactivate(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE premium_subscriptions SET is_active = 0 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription for user %d: %w", userID, err)
	}
	return nil
}
