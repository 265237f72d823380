package engine

import (
	"fmt"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/llm"
	"github.com/lazypower/companion/internal/store"
)

// Window keeps the most recent conversation turns per user.
type Window struct {
	DB     *store.DB
	Keep   int // rows retained, covering both roles
	MaxLen int // characters stored per turn
}

// NewWindow sizes the window to MaxHistory turns of each role.
func NewWindow(db *store.DB, cfg config.EngineConfig) *Window {
	return &Window{
		DB:     db,
		Keep:   cfg.MaxHistory * 2,
		MaxLen: cfg.TurnMaxLength,
	}
}

// Append records a turn and immediately trims the user's history to Keep rows.
func (w *Window) Append(userID, role, content string) error {
	if _, err := w.DB.AppendTurn(userID, role, truncateRunes(content, w.MaxLen)); err != nil {
		return err
	}
	if _, err := w.DB.TrimTurns(userID, w.Keep); err != nil {
		return fmt.Errorf("trim window: %w", err)
	}
	return nil
}

// Read returns the window oldest-first as a chat transcript.
func (w *Window) Read(userID string) ([]llm.Message, error) {
	turns, err := w.DB.RecentTurns(userID, w.Keep)
	if err != nil {
		return nil, err
	}
	msgs := make([]llm.Message, len(turns))
	for i, t := range turns {
		msgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return msgs, nil
}
