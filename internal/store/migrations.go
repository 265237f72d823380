package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "users: per-user relationship state",
		SQL: `
CREATE TABLE users (
    user_id         TEXT PRIMARY KEY,
    mood            TEXT    NOT NULL DEFAULT 'calm'
                    CHECK (mood IN ('calm', 'happy', 'sad', 'annoyed', 'worried', 'excited')),
    energy          INTEGER NOT NULL DEFAULT 75 CHECK (energy BETWEEN 20 AND 100),
    affection       INTEGER NOT NULL DEFAULT 60 CHECK (affection BETWEEN 0 AND 100),
    social_battery  INTEGER NOT NULL DEFAULT 70 CHECK (social_battery BETWEEN 20 AND 100),
    last_morning    TEXT    NOT NULL DEFAULT '',
    last_night      TEXT    NOT NULL DEFAULT '',
    last_random     TEXT    NOT NULL DEFAULT '',
    last_active     INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "attachment: immutable per-user attachment style",
		SQL: `
CREATE TABLE attachment (
    user_id  TEXT PRIMARY KEY,
    style    TEXT NOT NULL CHECK (style IN ('secure', 'anxious', 'avoidant')),
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE TRIGGER attachment_immutable
BEFORE UPDATE ON attachment
BEGIN
    SELECT RAISE(ABORT, 'attachment style is immutable');
END;
`,
	},
	{
		Version:     3,
		Description: "memories: salient facts with importance",
		SQL: `
CREATE TABLE memories (
    id          INTEGER PRIMARY KEY,
    user_id     TEXT    NOT NULL,
    content     TEXT    NOT NULL,
    importance  INTEGER NOT NULL DEFAULT 3,
    created_at  INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_memories_user_importance ON memories(user_id, importance DESC, created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "mood_history: one sample per user per day",
		SQL: `
CREATE TABLE mood_history (
    user_id    TEXT    NOT NULL,
    day        TEXT    NOT NULL,
    mood       TEXT    NOT NULL,
    energy     INTEGER NOT NULL,
    affection  INTEGER NOT NULL,
    PRIMARY KEY (user_id, day),
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);
`,
	},
	{
		Version:     5,
		Description: "conversation_history: bounded dialogue window",
		SQL: `
CREATE TABLE conversation_history (
    id          INTEGER PRIMARY KEY,
    user_id     TEXT    NOT NULL,
    role        TEXT    NOT NULL CHECK (role IN ('user', 'assistant')),
    content     TEXT    NOT NULL,
    created_at  INTEGER NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(user_id)
);

CREATE INDEX idx_history_user ON conversation_history(user_id, id DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
