package ledger_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"personabot/internal/database"
	"personabot/internal/ledger"
)

const defaultTokens = 20

func newTestStore(t *testing.T) ledger.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return ledger.NewStore(db, nil, defaultTokens)
}

func TestCorruptStoredValueCoercedToZero(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	store := ledger.NewStore(db, nil, defaultTokens)
	ctx := context.Background()
	const userID = int64(50)

	store.GetBalance(ctx, userID)

	for _, tc := range []struct {
		name  string
		value any
	}{
		{name: "null", value: nil},
		{name: "empty string", value: ""},
		{name: "non-numeric", value: "garbage"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := db.ExecContext(ctx,
				`UPDATE token_balances SET tokens = ? WHERE user_id = ?`, tc.value, userID); err != nil {
				t.Fatalf("failed to corrupt row: %v", err)
			}
			if got := store.GetBalance(ctx, userID); got != 0 {
				t.Errorf("GetBalance with corrupt value = %d, want 0", got)
			}
		})
	}
}

func TestGetBalanceLazyCreateIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	const userID = int64(100)

	if got := store.GetBalance(ctx, userID); got != defaultTokens {
		t.Fatalf("first GetBalance = %d, want default %d", got, defaultTokens)
	}

	// The persisted value wins over a fresh default on every later read.
	if err := store.SetBalance(ctx, userID, 7); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	for range 10 {
		if got := store.GetBalance(ctx, userID); got != 7 {
			t.Fatalf("GetBalance after set = %d, want 7", got)
		}
	}
}

func TestSetBalanceClampsNegative(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetBalance(ctx, 1, -50); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if got := store.GetBalance(ctx, 1); got != 0 {
		t.Errorf("GetBalance = %d, want 0 after negative set", got)
	}
}

func TestAddNeverBelowZero(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	const userID = int64(2)

	newBalance, err := store.Add(ctx, userID, 5)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Missing row starts from the default.
	if newBalance != defaultTokens+5 {
		t.Fatalf("Add on missing row = %d, want %d", newBalance, defaultTokens+5)
	}

	newBalance, err = store.Add(ctx, userID, -1000)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if newBalance != 0 {
		t.Errorf("Add clamping = %d, want 0", newBalance)
	}
}

func TestConsumeInsufficientLeavesBalanceUntouched(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	const userID = int64(3)

	if err := store.SetBalance(ctx, userID, 2); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	ok, err := store.Consume(ctx, userID, 5)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ok {
		t.Fatal("Consume should fail when the balance does not cover the amount")
	}
	if got := store.GetBalance(ctx, userID); got != 2 {
		t.Errorf("balance = %d after failed consume, want 2", got)
	}
}

func TestConsumeZeroOrNegativeIsFree(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for _, amount := range []int64{0, -3} {
		ok, err := store.Consume(ctx, 4, amount)
		if err != nil {
			t.Fatalf("Consume(%d): %v", amount, err)
		}
		if !ok {
			t.Errorf("Consume(%d) = false, want true", amount)
		}
	}
}

func TestConsumeSeedsNewAccount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	const userID = int64(5)

	// A brand-new user consumes from the default starting balance.
	ok, err := store.Consume(ctx, userID, 1)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !ok {
		t.Fatal("Consume on new account should succeed against the default")
	}
	if got := store.GetBalance(ctx, userID); got != defaultTokens-1 {
		t.Errorf("balance = %d, want %d", got, defaultTokens-1)
	}
}

func TestConcurrentConsumeNeverOverdraws(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	const userID = int64(6)
	const balance = 5
	const attempts = 20

	if err := store.SetBalance(ctx, userID, balance); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(ctx, userID, 1)
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != balance {
		t.Errorf("%d consumes succeeded, want exactly %d", succeeded, balance)
	}
	if got := store.GetBalance(ctx, userID); got != 0 {
		t.Errorf("final balance = %d, want 0", got)
	}
}
