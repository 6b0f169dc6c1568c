package premium_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"personabot/internal/database"
	"personabot/internal/premium"
)

func newTestStore(t *testing.T) (premium.Store, *sqlx.DB) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return premium.NewStore(db, nil), db
}

func TestIsUnlimitedNoSubscription(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	unlimited, err := store.IsUnlimited(context.Background(), 1)
	if err != nil {
		t.Fatalf("IsUnlimited: %v", err)
	}
	if unlimited {
		t.Error("user without subscription should not be unlimited")
	}
}

func TestActivateUnlimitedPlan(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	const userID = int64(2)

	if err := store.Activate(ctx, userID, premium.PlanUnlimited, 30*24*time.Hour); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	unlimited, err := store.IsUnlimited(ctx, userID)
	if err != nil {
		t.Fatalf("IsUnlimited: %v", err)
	}
	if !unlimited {
		t.Error("active unlimited plan should report unlimited")
	}
}

func TestLowerPlanIsNotUnlimited(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	const userID = int64(3)

	if err := store.Activate(ctx, userID, 1, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	unlimited, err := store.IsUnlimited(ctx, userID)
	if err != nil {
		t.Fatalf("IsUnlimited: %v", err)
	}
	if unlimited {
		t.Error("plan 1 should not be unlimited")
	}
}

func TestExpiredSubscriptionDeactivatedOnRead(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t)
	ctx := context.Background()
	const userID = int64(4)

	expired := time.Now().Add(-time.Hour)
	if _, err := db.ExecContext(ctx, `
		INSERT INTO premium_subscriptions (user_id, is_active, plan_type, activated_at, expires_at)
		VALUES (?, 1, ?, ?, ?)`,
		userID, premium.PlanUnlimited, expired.Add(-30*24*time.Hour), expired); err != nil {
		t.Fatalf("failed to insert expired subscription: %v", err)
	}

	unlimited, err := store.IsUnlimited(ctx, userID)
	if err != nil {
		t.Fatalf("IsUnlimited: %v", err)
	}
	if unlimited {
		t.Fatal("expired subscription should not be unlimited")
	}

	sub, err := store.Status(ctx, userID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if sub == nil {
		t.Fatal("subscription row should still exist")
	}
	if sub.IsActive {
		t.Error("expired subscription should have been deactivated on read")
	}
}

func TestNoExpiryMeansNeverExpires(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()
	const userID = int64(5)

	if err := store.Activate(ctx, userID, premium.PlanUnlimited, 0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	unlimited, err := store.IsUnlimited(ctx, userID)
	if err != nil {
		t.Fatalf("IsUnlimited: %v", err)
	}
	if !unlimited {
		t.Error("subscription without expiry should stay unlimited")
	}
}
