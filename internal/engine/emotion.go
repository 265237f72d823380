package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/companion/internal/metrics"
	"github.com/lazypower/companion/internal/store"
)

// moodRule maps a set of trigger keywords to a mood and the affection it earns.
type moodRule struct {
	Mood      store.Mood
	Keywords  []string
	Affection int
}

// moodRules is scanned top to bottom and the first rule with a matching
// keyword wins. A message that is both worrying and happy resolves to
// worried. Keep this order explicit; nothing else encodes the priority.
var moodRules = []moodRule{
	{Mood: store.MoodWorried, Affection: 4, Keywords: []string{"ป่วย", "ไม่สบาย", "เป็นอะไร", "อันตราย"}},
	{Mood: store.MoodSad, Affection: 5, Keywords: []string{"เหนื่อย", "เศร้า", "ร้องไห้", "เจ็บ", "เสียใจ"}},
	{Mood: store.MoodAnnoyed, Affection: 2, Keywords: []string{"ผู้ชาย", "แฟนเก่า", "เพื่อนผู้ชาย", "ไม่แคร์", "ช่างมัน"}},
	{Mood: store.MoodExcited, Affection: 3, Keywords: []string{"เย้", "สนุก", "ตื่นเต้น", "ไป", "เจอ"}},
	{Mood: store.MoodHappy, Affection: 6, Keywords: []string{"ขอบคุณ", "รัก", "คิดถึง", "ดีใจ", "ชอบ", "สุข"}},
}

// ResolveMood returns the mood triggered by text and its affection delta.
// If no rule matches, current is returned with a zero delta.
func ResolveMood(text string, current store.Mood) (store.Mood, int) {
	for _, r := range moodRules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Mood, r.Affection
			}
		}
	}
	return current, 0
}

// Apply computes the next state for an inbound message. It is pure: the
// caller persists the result.
func Apply(cur store.UserState, style store.AttachmentStyle, text string) store.UserState {
	next := cur
	length := utf8.RuneCountInString(text)

	mood, delta := ResolveMood(text, cur.Mood)
	next.Mood = mood
	next.Affection += delta

	if style == store.AttachmentAnxious && mood == store.MoodAnnoyed {
		next.Affection += 3
	}
	if style == store.AttachmentAvoidant && length > 80 {
		next.SocialBattery -= 8
	}
	if style == store.AttachmentSecure {
		next.SocialBattery = min(next.SocialBattery+2, store.MaxSocialBattery)
	}
	if length < 5 {
		next.SocialBattery -= 4
	}

	next.Energy--

	next.Energy = store.ClampInt(next.Energy, store.MinEnergy, store.MaxEnergy)
	next.SocialBattery = store.ClampInt(next.SocialBattery, store.MinSocialBattery, store.MaxSocialBattery)
	next.Affection = store.ClampInt(next.Affection, store.MinAffection, store.MaxAffection)
	return next
}

// Emotion evaluates inbound messages against a user's persisted state.
// Each evaluation reads, computes and writes inside one immediate write
// transaction, so it never overwrites a concurrent RecoverAll or an
// evaluation running in another process.
type Emotion struct {
	DB       *store.DB
	Location *time.Location
	Now      func() time.Time

	locks       sync.Map // user id -> *sync.Mutex
	beforeWrite func()   // runs between the read and the write; tests only
}

// NewEmotion creates an emotion engine that buckets days in loc.
func NewEmotion(db *store.DB, loc *time.Location) *Emotion {
	return &Emotion{
		DB:       db,
		Location: loc,
		Now:      time.Now,
	}
}

func (e *Emotion) lock(userID string) func() {
	v, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Evaluate applies text to the user's state, persists the result and
// records the day's mood sample if none exists yet.
func (e *Emotion) Evaluate(userID, text string) (*store.UserState, error) {
	// Same-user messages in this process queue here instead of spinning
	// on SQLite's busy timeout.
	unlock := e.lock(userID)
	defer unlock()

	now := e.Now().In(e.Location)

	var (
		next     store.UserState
		style    store.AttachmentStyle
		recorded bool
	)
	err := e.DB.WriteTx(context.Background(), func(tx *store.UserTx) error {
		cur, err := tx.GetOrCreateUser(userID)
		if err != nil {
			return fmt.Errorf("load state: %w", err)
		}
		style, err = tx.Attachment(userID)
		if err != nil {
			return fmt.Errorf("load attachment: %w", err)
		}
		if e.beforeWrite != nil {
			e.beforeWrite()
		}

		next = Apply(*cur, style, text)
		next.LastActive = now.UnixMilli()

		if err := tx.UpdateUser(userID, store.Fields{
			store.FieldMood:          next.Mood,
			store.FieldEnergy:        next.Energy,
			store.FieldAffection:     next.Affection,
			store.FieldSocialBattery: next.SocialBattery,
			store.FieldLastActive:    next.LastActive,
		}); err != nil {
			return fmt.Errorf("save state: %w", err)
		}

		recorded, err = tx.RecordMoodSample(store.MoodSample{
			UserID:    userID,
			Day:       now.Format(time.DateOnly),
			Mood:      next.Mood,
			Energy:    next.Energy,
			Affection: next.Affection,
		})
		if err != nil {
			return fmt.Errorf("mood sample: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MoodTransitions.WithLabelValues(string(next.Mood)).Inc()
	log.Debug().
		Str("user_id", userID).
		Str("style", string(style)).
		Str("mood", string(next.Mood)).
		Int("energy", next.Energy).
		Int("affection", next.Affection).
		Int("social_battery", next.SocialBattery).
		Bool("sampled", recorded).
		Msg("emotion evaluated")

	return &next, nil
}
