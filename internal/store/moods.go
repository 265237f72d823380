package store

import (
	"context"
	"fmt"
)

// MoodSample is a once-per-day snapshot of a user's state.
type MoodSample struct {
	UserID    string
	Day       string // YYYY-MM-DD in the service timezone
	Mood      Mood
	Energy    int
	Affection int
}

// RecordMoodSample inserts the day's sample for a user unless one already
// exists. The (user_id, day) primary key makes concurrent attempts safe:
// the loser is silently dropped. Returns whether a row was written.
func (db *DB) RecordMoodSample(s MoodSample) (bool, error) {
	return recordMoodSample(context.Background(), db.DB, s)
}

func recordMoodSample(ctx context.Context, q querier, s MoodSample) (bool, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO mood_history (user_id, day, mood, energy, affection)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO NOTHING
	`, s.UserID, s.Day, string(s.Mood), s.Energy, s.Affection)
	if err != nil {
		return false, fmt.Errorf("record mood sample: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// MoodHistory returns a user's most recent samples, newest first.
func (db *DB) MoodHistory(userID string, limit int) ([]MoodSample, error) {
	rows, err := db.Query(`
		SELECT user_id, day, mood, energy, affection
		FROM mood_history WHERE user_id = ?
		ORDER BY day DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("mood history: %w", err)
	}
	defer rows.Close()

	var samples []MoodSample
	for rows.Next() {
		var s MoodSample
		var mood string
		if err := rows.Scan(&s.UserID, &s.Day, &mood, &s.Energy, &s.Affection); err != nil {
			return nil, fmt.Errorf("scan mood sample: %w", err)
		}
		s.Mood = Mood(mood)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
