package store

import (
	"fmt"
	"time"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a user's conversation window.
type Turn struct {
	ID        int64
	UserID    string
	Role      string
	Content   string
	CreatedAt int64
}

// AppendTurn records a conversation turn. Content is expected to be
// truncated by the caller.
func (db *DB) AppendTurn(userID, role, content string) (int64, error) {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO conversation_history (user_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, role, content, now)
	if err != nil {
		return 0, fmt.Errorf("append turn: %w", err)
	}
	id, _ := result.LastInsertId()
	return id, nil
}

// TrimTurns hard-deletes all but the newest keep turns for a user.
func (db *DB) TrimTurns(userID string, keep int) (int64, error) {
	result, err := db.Exec(`
		DELETE FROM conversation_history
		WHERE user_id = ? AND id NOT IN (
		    SELECT id FROM conversation_history
		    WHERE user_id = ?
		    ORDER BY id DESC
		    LIMIT ?
		)
	`, userID, userID, keep)
	if err != nil {
		return 0, fmt.Errorf("trim turns: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// RecentTurns returns up to limit of a user's newest turns in chronological order.
func (db *DB) RecentTurns(userID string, limit int) ([]Turn, error) {
	rows, err := db.Query(`
		SELECT id, user_id, role, content, created_at FROM (
		    SELECT id, user_id, role, content, created_at
		    FROM conversation_history WHERE user_id = ?
		    ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
