package engine

import (
	"fmt"
	"strings"

	"github.com/lazypower/companion/internal/llm"
	"github.com/lazypower/companion/internal/store"
)

// EnergyBand returns the reply-length guidance for an energy level.
func EnergyBand(energy int) string {
	switch {
	case energy < 35:
		return llm.EnergyVeryShort
	case energy < 60:
		return llm.EnergyConcise
	default:
		return llm.EnergyNormal
	}
}

// AffectionBand returns the warmth descriptor for an affection level.
func AffectionBand(affection int) string {
	switch {
	case affection > 80:
		return llm.AffectionWarm
	case affection > 50:
		return llm.AffectionCaring
	default:
		return llm.AffectionReserve
	}
}

// Composer renders a user's state and memories into a system prompt.
// It only reads.
type Composer struct {
	DB       *store.DB
	Memories *Memories
}

// NewComposer creates a prompt composer.
func NewComposer(db *store.DB, mem *Memories) *Composer {
	return &Composer{DB: db, Memories: mem}
}

// Compose returns the system prompt for userID. Users that have never been
// seen render with the default state.
func (c *Composer) Compose(userID string) (string, error) {
	u, err := c.DB.GetUser(userID)
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}
	if u == nil {
		u = &store.UserState{
			UserID:        userID,
			Mood:          store.MoodCalm,
			Energy:        75,
			Affection:     60,
			SocialBattery: 70,
		}
	}
	style, err := c.DB.Attachment(userID)
	if err != nil {
		return "", fmt.Errorf("load attachment: %w", err)
	}
	mems, err := c.Memories.Top(userID)
	if err != nil {
		return "", fmt.Errorf("load memories: %w", err)
	}
	return render(u, style, mems), nil
}

// ComposeMoment returns the transcript for an unprompted message at moment.
func (c *Composer) ComposeMoment(userID, moment string) ([]llm.Message, error) {
	instruction := llm.MomentPrompt(moment)
	if instruction == "" {
		return nil, fmt.Errorf("unknown moment %q", moment)
	}
	system, err := c.Compose(userID)
	if err != nil {
		return nil, err
	}
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: instruction},
	}, nil
}

func render(u *store.UserState, style store.AttachmentStyle, mems []store.Memory) string {
	var b strings.Builder

	b.WriteString(llm.Persona)
	b.WriteString("\n\n━━━━━━━━ CURRENT STATE ━━━━━━━━\n")
	if style == "" {
		style = "unknown"
	}
	fmt.Fprintf(&b, "Attachment style : %s\n", style)
	fmt.Fprintf(&b, "Mood             : %s\n", u.Mood)
	fmt.Fprintf(&b, "Energy           : %d/100 → %s\n", u.Energy, EnergyBand(u.Energy))
	fmt.Fprintf(&b, "Affection        : %d/100 → %s\n", u.Affection, AffectionBand(u.Affection))
	fmt.Fprintf(&b, "Social battery   : %d/100\n", u.SocialBattery)

	b.WriteString("\n━━━━━━━━ MEMORIES ━━━━━━━━\n")
	if len(mems) == 0 {
		b.WriteString(llm.NoMemories)
		b.WriteString("\n")
	}
	for _, m := range mems {
		fmt.Fprintf(&b, "- %s\n", m.Content)
	}

	b.WriteString("\n")
	b.WriteString(llm.Rules)
	return b.String()
}
