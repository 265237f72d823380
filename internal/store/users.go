package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

// Mood is the user's current emotional state as tracked by the engine.
type Mood string

const (
	MoodCalm    Mood = "calm"
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodAnnoyed Mood = "annoyed"
	MoodWorried Mood = "worried"
	MoodExcited Mood = "excited"
)

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	switch m {
	case MoodCalm, MoodHappy, MoodSad, MoodAnnoyed, MoodWorried, MoodExcited:
		return true
	}
	return false
}

// AttachmentStyle modifies how the engine reacts to certain triggers.
type AttachmentStyle string

const (
	AttachmentSecure   AttachmentStyle = "secure"
	AttachmentAnxious  AttachmentStyle = "anxious"
	AttachmentAvoidant AttachmentStyle = "avoidant"
)

var attachmentStyles = []AttachmentStyle{AttachmentSecure, AttachmentAnxious, AttachmentAvoidant}

// Bounds for the clamped state fields.
const (
	MinEnergy        = 20
	MaxEnergy        = 100
	MinAffection     = 0
	MaxAffection     = 100
	MinSocialBattery = 20
	MaxSocialBattery = 100
)

// UserState is one row of the users table.
type UserState struct {
	UserID        string
	Mood          Mood
	Energy        int
	Affection     int
	SocialBattery int
	LastMorning   string
	LastNight     string
	LastRandom    string
	LastActive    int64 // unix millis, 0 if never active
	CreatedAt     int64
}

// Field names a mutable column of the users table. UpdateUser only
// accepts members of this closed set.
type Field string

const (
	FieldMood          Field = "mood"
	FieldEnergy        Field = "energy"
	FieldAffection     Field = "affection"
	FieldSocialBattery Field = "social_battery"
	FieldLastMorning   Field = "last_morning"
	FieldLastNight     Field = "last_night"
	FieldLastRandom    Field = "last_random"
	FieldLastActive    Field = "last_active"
)

var mutableFields = map[Field]bool{
	FieldMood:          true,
	FieldEnergy:        true,
	FieldAffection:     true,
	FieldSocialBattery: true,
	FieldLastMorning:   true,
	FieldLastNight:     true,
	FieldLastRandom:    true,
	FieldLastActive:    true,
}

// Fields is a set of column updates for UpdateUser.
type Fields map[Field]any

var (
	// ErrInvalidField is returned when an update names a column outside the mutable set.
	ErrInvalidField = errors.New("invalid user field")
	// ErrInvalidValue is returned when an update value has the wrong type or an unknown enum value.
	ErrInvalidValue = errors.New("invalid user field value")
)

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const userColumns = `user_id, mood, energy, affection, social_battery,
	last_morning, last_night, last_random, last_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*UserState, error) {
	var u UserState
	var mood string
	err := row.Scan(&u.UserID, &mood, &u.Energy, &u.Affection, &u.SocialBattery,
		&u.LastMorning, &u.LastNight, &u.LastRandom, &u.LastActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Mood = Mood(mood)
	return &u, nil
}

// GetUser returns a user's state, or nil if the user has never been seen.
func (db *DB) GetUser(userID string) (*UserState, error) {
	return getUser(context.Background(), db.DB, userID)
}

func getUser(ctx context.Context, q querier, userID string) (*UserState, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetOrCreateUser returns a user's state, creating the row with default
// values and a random attachment style on first contact.
func (db *DB) GetOrCreateUser(userID string) (*UserState, error) {
	return getOrCreateUser(context.Background(), db.DB, userID)
}

func getOrCreateUser(ctx context.Context, q querier, userID string) (*UserState, error) {
	now := time.Now().UnixMilli()
	if _, err := q.ExecContext(ctx, `
		INSERT INTO users (user_id, created_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, now); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	style := attachmentStyles[rand.IntN(len(attachmentStyles))]
	if _, err := q.ExecContext(ctx, `
		INSERT INTO attachment (user_id, style) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, string(style)); err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}

	u, err := getUser(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s vanished after insert", userID)
	}
	return u, nil
}

// Attachment returns the user's attachment style, or "" if the user is unknown.
func (db *DB) Attachment(userID string) (AttachmentStyle, error) {
	return attachment(context.Background(), db.DB, userID)
}

func attachment(ctx context.Context, q querier, userID string) (AttachmentStyle, error) {
	var style string
	err := q.QueryRowContext(ctx, `SELECT style FROM attachment WHERE user_id = ?`, userID).Scan(&style)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get attachment: %w", err)
	}
	return AttachmentStyle(style), nil
}

// ListUsers returns every known user, ordered by user_id.
func (db *DB) ListUsers() ([]UserState, error) {
	rows, err := db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []UserState
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// normalize validates one field update and clamps bounded values.
func normalize(f Field, v any) (any, error) {
	if !mutableFields[f] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, string(f))
	}
	switch f {
	case FieldMood:
		var m Mood
		switch x := v.(type) {
		case Mood:
			m = x
		case string:
			m = Mood(x)
		default:
			return nil, fmt.Errorf("%w: %s wants a mood, got %T", ErrInvalidValue, f, v)
		}
		if !m.Valid() {
			return nil, fmt.Errorf("%w: unknown mood %q", ErrInvalidValue, string(m))
		}
		return string(m), nil
	case FieldEnergy, FieldAffection, FieldSocialBattery:
		n, ok := v.(int)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants an int, got %T", ErrInvalidValue, f, v)
		}
		switch f {
		case FieldEnergy:
			return ClampInt(n, MinEnergy, MaxEnergy), nil
		case FieldAffection:
			return ClampInt(n, MinAffection, MaxAffection), nil
		default:
			return ClampInt(n, MinSocialBattery, MaxSocialBattery), nil
		}
	case FieldLastActive:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants an int64, got %T", ErrInvalidValue, f, v)
		}
		return n, nil
	default: // date markers
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a string, got %T", ErrInvalidValue, f, v)
		}
		return s, nil
	}
}

// UpdateUser applies a set of field updates to one user in a single
// statement. The whole update is rejected if any field is outside the
// mutable set or carries a bad value. Bounded fields are clamped.
func (db *DB) UpdateUser(userID string, fields Fields) error {
	return updateUser(context.Background(), db.DB, userID, fields)
}

func updateUser(ctx context.Context, q querier, userID string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	// Deterministic column order keeps the statement text stable.
	keys := make([]string, 0, len(fields))
	for f := range fields {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		v, err := normalize(Field(k), fields[Field(k)])
		if err != nil {
			return err
		}
		// k is a member of mutableFields, never caller-constructed text.
		sets = append(sets, k+" = ?")
		args = append(args, v)
	}
	args = append(args, userID)

	result, err := q.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update user: no user %s", userID)
	}
	return nil
}

// RecoverAll adds energy and social battery to every user, capped at the maximum.
func (db *DB) RecoverAll(energy, social int) (int64, error) {
	result, err := db.Exec(`
		UPDATE users
		SET energy         = MIN(energy + ?, ?),
		    social_battery = MIN(social_battery + ?, ?)
	`, energy, MaxEnergy, social, MaxSocialBattery)
	if err != nil {
		return 0, fmt.Errorf("recover all: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
