package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lazypower/companion/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// seedUser creates a user with a known attachment style. GetOrCreateUser
// leaves both rows alone afterwards.
func seedUser(t *testing.T, db *store.DB, userID string, style store.AttachmentStyle) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (user_id, created_at) VALUES (?, ?)`, userID, time.Now().UnixMilli())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO attachment (user_id, style) VALUES (?, ?)`, userID, string(style))
	require.NoError(t, err)
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
