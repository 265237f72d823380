package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/metrics"
	"github.com/lazypower/companion/internal/store"
)

// Importance scores.
const (
	ImportanceLow    = 3
	ImportanceMedium = 5
	ImportanceHigh   = 9
)

// longMemoryChars is the length above which an ordinary message is worth more.
const longMemoryChars = 60

var highImportanceKeywords = []string{
	"รัก", "ร้องไห้", "คิดถึงมาก", "ลืมไม่ลง", "สำคัญ", "ครั้งแรก", "ขอโทษ",
}

// Importance scores a message for retention.
func Importance(text string) int {
	for _, kw := range highImportanceKeywords {
		if strings.Contains(text, kw) {
			return ImportanceHigh
		}
	}
	if utf8.RuneCountInString(text) > longMemoryChars {
		return ImportanceMedium
	}
	return ImportanceLow
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Memories decides what to remember about a user and enforces the
// retention cap on low-importance memories.
type Memories struct {
	DB  *store.DB
	Cfg config.EngineConfig
}

// NewMemories creates a memory manager.
func NewMemories(db *store.DB, cfg config.EngineConfig) *Memories {
	return &Memories{DB: db, Cfg: cfg}
}

// Consider stores text as a memory if it is long enough to matter, then
// prunes the user's low-importance memories down to the cap. Returns
// whether a memory was stored.
func (m *Memories) Consider(userID, text string) (bool, error) {
	if utf8.RuneCountInString(text) <= m.Cfg.MinMemoryLength {
		return false, nil
	}

	importance := Importance(text)
	if _, err := m.DB.AddMemory(userID, truncateRunes(text, m.Cfg.MemoryMaxLength), importance); err != nil {
		return false, err
	}
	metrics.MemoriesStored.WithLabelValues(strconv.Itoa(importance)).Inc()

	pruned, err := m.DB.PruneMemories(userID, m.Cfg.DurableImportance, m.Cfg.LowImportanceCap)
	if err != nil {
		return true, fmt.Errorf("prune: %w", err)
	}
	if pruned > 0 {
		metrics.MemoriesPruned.Add(float64(pruned))
		log.Debug().Str("user_id", userID).Int64("pruned", pruned).Msg("memory cap enforced")
	}
	return true, nil
}

// Top returns the memories injected into prompts: most important first,
// then most recent. It never writes.
func (m *Memories) Top(userID string) ([]store.Memory, error) {
	return m.DB.TopMemories(userID, m.Cfg.MemoryLimit)
}
