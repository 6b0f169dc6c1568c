package admission

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartFinishLifecycle(t *testing.T) {
	t.Parallel()

	l := NewLock(nil)
	const userID = int64(42)

	if l.HasActive(userID) {
		t.Fatal("fresh lock should have no marker")
	}

	l.Start(userID)
	if !l.HasActive(userID) {
		t.Fatal("marker should exist after Start")
	}
	if l.HasActive(7) {
		t.Error("marker for one user must not leak to another")
	}

	l.Finish(userID)
	if l.HasActive(userID) {
		t.Error("marker should be gone after Finish")
	}

	// Finish without a marker is a no-op.
	l.Finish(userID)
}

func TestClearReportsPresence(t *testing.T) {
	t.Parallel()

	l := NewLock(nil)

	if l.Clear(1) {
		t.Error("Clear on empty lock should report false")
	}

	l.Start(1)
	if !l.Clear(1) {
		t.Error("Clear should report true when a marker existed")
	}
	if l.HasActive(1) {
		t.Error("marker should be gone after Clear")
	}
}

func TestSweepExpiredRemovesOnlyStaleMarkers(t *testing.T) {
	t.Parallel()

	l := NewLock(nil)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	l.Start(1)
	clock = clock.Add(5 * time.Minute)
	l.Start(2)
	clock = clock.Add(6 * time.Minute)

	removed := l.SweepExpired(10 * time.Minute)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if l.HasActive(1) {
		t.Error("stale marker for user 1 should be swept")
	}
	if !l.HasActive(2) {
		t.Error("fresh marker for user 2 should survive")
	}
}

func TestTryStartExactlyOneWinner(t *testing.T) {
	t.Parallel()

	l := NewLock(nil)
	const userID = int64(42)

	var (
		wg    sync.WaitGroup
		ready = make(chan struct{})
		wins  atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ready
			if l.TryStart(userID) {
				wins.Add(1)
			}
		}()
	}
	close(ready)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("TryStart won %d times, want exactly 1", got)
	}
	if !l.HasActive(userID) {
		t.Error("winner's marker should remain until Finish")
	}

	l.Finish(userID)
	if !l.TryStart(userID) {
		t.Error("TryStart should succeed again after Finish")
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	l := NewLock(nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			l.Start(userID)
			l.HasActive(userID)
			l.Finish(userID)
		}(int64(i))
	}
	wg.Wait()

	if n := l.ActiveCount(); n != 0 {
		t.Errorf("ActiveCount = %d after all finished, want 0", n)
	}
}
