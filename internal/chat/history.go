package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"personabot/internal/provider"
)

// StoredMessage is one persisted conversation entry.
type StoredMessage struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// HistoryStore persists per-user conversation history.
type HistoryStore interface {
	// Append records one message for the user.
	Append(ctx context.Context, userID int64, role, content string) error

	// Recent returns the user's most recent messages in chronological
	// order, at most limit entries.
	Recent(ctx context.Context, userID int64, limit int) ([]StoredMessage, error)

	// DeleteAll removes the user's history and returns the count removed.
	DeleteAll(ctx context.Context, userID int64) (int64, error)
}

type sqlxHistory struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewHistoryStore creates a HistoryStore backed by sqlx.
func NewHistoryStore(db *sqlx.DB, logger *slog.Logger) HistoryStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxHistory{
		db:     db,
		logger: logger.With("component", "history"),
	}
}

func (s *sqlxHistory) Append(ctx context.Context, userID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (user_id, role, content, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		userID, role, content)
	if err != nil {
		return fmt.Errorf("failed to append message for user %d: %w", userID, err)
	}
	return nil
}

func (s *sqlxHistory) Recent(ctx context.Context, userID int64, limit int) ([]StoredMessage, error) {
	var rows []StoredMessage
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, role, content, created_at
		FROM messages WHERE user_id = ?
		ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history for user %d: %w", userID, err)
	}

	// Query is newest-first for the LIMIT; reverse into prompt order.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (s *sqlxHistory) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history for user %d: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted history for user %d: %w", userID, err)
	}
	return affected, nil
}

// buildWindow assembles the prompt: the system instruction first, then
// the most recent user/assistant pairs. The system message survives
// trimming no matter how long the conversation gets.
func buildWindow(instruction string, history []StoredMessage, maxPairs int) []provider.Message {
	maxMessages := maxPairs * 2
	if len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}

	window := make([]provider.Message, 0, len(history)+1)
	if instruction != "" {
		window = append(window, provider.Message{Role: provider.RoleSystem, Content: instruction})
	}
	for _, m := range history {
		window = append(window, provider.Message{Role: m.Role, Content: m.Content})
	}
	return window
}
