package engine

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/store"
)

func TestImportance(t *testing.T) {
	assert.Equal(t, ImportanceHigh, Importance("วันนี้ร้องไห้ทั้งวันเลย"))
	assert.Equal(t, ImportanceHigh, Importance("ขอโทษนะ"))
	assert.Equal(t, ImportanceMedium, Importance(strings.Repeat("ก", 61)))
	assert.Equal(t, ImportanceLow, Importance(strings.Repeat("ก", 60)))
	assert.Equal(t, ImportanceLow, Importance("ไปกินข้าวกับเพื่อนมา"))
}

func TestConsiderSkipsShortMessages(t *testing.T) {
	db := testDB(t)
	seedUser(t, db, "U1", store.AttachmentSecure)
	m := NewMemories(db, config.Default().Engine)

	stored, err := m.Consider("U1", "เหนื่อยมาก") // 10 characters
	require.NoError(t, err)
	assert.False(t, stored)

	n, err := db.CountMemories("U1", 0, 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConsiderTruncates(t *testing.T) {
	db := testDB(t)
	seedUser(t, db, "U1", store.AttachmentSecure)
	m := NewMemories(db, config.Default().Engine)

	_, err := m.Consider("U1", strings.Repeat("ก", 400))
	require.NoError(t, err)

	top, err := m.Top("U1")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 300, utf8.RuneCountInString(top[0].Content))
	assert.Equal(t, ImportanceMedium, top[0].Importance)
}

func TestConsiderEnforcesCap(t *testing.T) {
	db := testDB(t)
	seedUser(t, db, "U1", store.AttachmentSecure)
	m := NewMemories(db, config.Default().Engine)

	for i := range 2 {
		_, err := m.Consider("U1", fmt.Sprintf("เรื่องสำคัญของเราสองคน %d", i))
		require.NoError(t, err)
	}
	for i := range 60 {
		stored, err := m.Consider("U1", fmt.Sprintf("ข้อความธรรมดาหมายเลข %03d", i))
		require.NoError(t, err)
		require.True(t, stored)
	}

	low, err := db.CountMemories("U1", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 50, low)

	high, err := db.CountMemories("U1", 5, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, high, "durable memories are never pruned")

	top, err := m.Top("U1")
	require.NoError(t, err)
	require.Len(t, top, 8)
	assert.Equal(t, ImportanceHigh, top[0].Importance)
	assert.Equal(t, ImportanceHigh, top[1].Importance)
	assert.Equal(t, "ข้อความธรรมดาหมายเลข 059", top[2].Content)
}
