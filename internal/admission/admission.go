// Package admission implements the per-user busy lock that keeps one
// in-flight AI request per user. It is a gate, not a queue: while a
// marker exists, new messages from that user are dropped.
package admission

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Lock tracks which users have a request in flight. An explicit
// instance is injected where needed; tests construct their own.
type Lock struct {
	mu     sync.Mutex
	active map[int64]time.Time
	logger *slog.Logger
	now    func() time.Time
}

// NewLock creates an empty admission lock.
func NewLock(logger *slog.Logger) *Lock {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Lock{
		active: make(map[int64]time.Time),
		logger: logger.With("component", "admission_lock"),
		now:    time.Now,
	}
}

// HasActive reports whether the user currently holds a busy marker.
func (l *Lock) HasActive(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.active[userID]
	return ok
}

// Start places a busy marker for the user, stamping the current time.
// Starting while a marker exists refreshes the stamp.
func (l *Lock) Start(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active[userID] = l.now()
}

// TryStart places a busy marker for the user and reports whether it was
// placed. The check and the insert happen under one mutex hold, so of
// any number of concurrent callers exactly one wins.
func (l *Lock) TryStart(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.active[userID]; ok {
		return false
	}
	l.active[userID] = l.now()
	return true
}

// Finish removes the user's busy marker. Finishing without a marker is
// a no-op.
func (l *Lock) Finish(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, userID)
}

// Clear force-removes the user's marker and reports whether one
// existed. Used by the stop-chat command.
func (l *Lock) Clear(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.active[userID]
	delete(l.active, userID)
	return ok
}

// SweepExpired removes markers older than maxAge and returns how many
// were removed. A crashed in-flight request must not wedge a user
// forever, so the scheduler runs this periodically as a lease expiry.
func (l *Lock) SweepExpired(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for userID, started := range l.active {
		if now.Sub(started) > maxAge {
			delete(l.active, userID)
			removed++
			l.logger.Warn("Expired stale busy marker",
				"user_id", userID, "age", now.Sub(started).Round(time.Second))
		}
	}
	return removed
}

// ActiveCount returns the number of users with a marker.
func (l *Lock) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}
