package store

import (
	"fmt"
	"time"
)

// Memory is a salient fact retained about a user.
type Memory struct {
	ID         int64
	UserID     string
	Content    string
	Importance int
	CreatedAt  int64
}

// AddMemory stores a memory. Content is expected to be truncated by the caller.
func (db *DB) AddMemory(userID, content string, importance int) (int64, error) {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO memories (user_id, content, importance, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, content, importance, now)
	if err != nil {
		return 0, fmt.Errorf("add memory: %w", err)
	}
	id, _ := result.LastInsertId()
	return id, nil
}

// PruneMemories deletes a user's memories with importance below durable,
// keeping only the newest keep of them. Memories at or above durable are
// never touched. Returns the number of rows deleted.
func (db *DB) PruneMemories(userID string, durable, keep int) (int64, error) {
	result, err := db.Exec(`
		DELETE FROM memories
		WHERE user_id = ? AND importance < ?
		  AND id NOT IN (
		      SELECT id FROM memories
		      WHERE user_id = ? AND importance < ?
		      ORDER BY created_at DESC, id DESC
		      LIMIT ?
		  )
	`, userID, durable, userID, durable, keep)
	if err != nil {
		return 0, fmt.Errorf("prune memories: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// TopMemories returns up to limit memories ordered by importance, then recency.
func (db *DB) TopMemories(userID string, limit int) ([]Memory, error) {
	rows, err := db.Query(`
		SELECT id, user_id, content, importance, created_at
		FROM memories WHERE user_id = ?
		ORDER BY importance DESC, created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("top memories: %w", err)
	}
	defer rows.Close()

	var mems []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.Importance, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		mems = append(mems, m)
	}
	return mems, rows.Err()
}

// CountMemories returns how many of a user's memories fall in [minImportance, maxImportance).
func (db *DB) CountMemories(userID string, minImportance, maxImportance int) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM memories
		WHERE user_id = ? AND importance >= ? AND importance < ?
	`, userID, minImportance, maxImportance).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return count, nil
}
