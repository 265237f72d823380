// Package scheduler sends proactive messages at fixed daily moments and
// restores every user's energy once each morning.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/companion/internal/config"
	"github.com/lazypower/companion/internal/delivery"
	"github.com/lazypower/companion/internal/engine"
	"github.com/lazypower/companion/internal/llm"
	"github.com/lazypower/companion/internal/metrics"
	"github.com/lazypower/companion/internal/store"
)

// Moment is a daily occasion for an unprompted message. Marker is the
// users column recording the last day it was sent.
type Moment struct {
	Name        string
	HourStart   int
	HourEnd     int
	MinuteStart int
	MinuteEnd   int // inclusive
	Marker      store.Field
}

// Moments are checked on every tick, in order.
var Moments = []Moment{
	{Name: "morning", HourStart: 6, HourEnd: 6, MinuteStart: 0, MinuteEnd: 10, Marker: store.FieldLastMorning},
	{Name: "day", HourStart: 14, HourEnd: 14, MinuteStart: 0, MinuteEnd: 10, Marker: store.FieldLastRandom},
	{Name: "night", HourStart: 23, HourEnd: 23, MinuteStart: 50, MinuteEnd: 59, Marker: store.FieldLastNight},
}

// InWindow reports whether hour:minute falls inside the moment's window.
func (m Moment) InWindow(hour, minute int) bool {
	return m.HourStart <= hour && hour <= m.HourEnd &&
		m.MinuteStart <= minute && minute <= m.MinuteEnd
}

func markerValue(u store.UserState, f store.Field) string {
	switch f {
	case store.FieldLastMorning:
		return u.LastMorning
	case store.FieldLastNight:
		return u.LastNight
	case store.FieldLastRandom:
		return u.LastRandom
	}
	return ""
}

// Scheduler runs the periodic tick. Only the process holding the Leader
// lock should run it.
type Scheduler struct {
	DB        *store.DB
	Composer  *engine.Composer
	LLM       llm.Client
	Deliverer delivery.Deliverer
	Cfg       config.SchedulerConfig
	Opts      llm.Options
	Location  *time.Location
	Now       func() time.Time

	mu          sync.Mutex
	recoveredOn string
}

// New creates a scheduler.
func New(db *store.DB, composer *engine.Composer, client llm.Client, d delivery.Deliverer, cfg *config.Config, loc *time.Location) *Scheduler {
	return &Scheduler{
		DB:        db,
		Composer:  composer,
		LLM:       client,
		Deliverer: d,
		Cfg:       cfg.Scheduler,
		Opts:      llm.ProactiveOptions(cfg.LLM),
		Location:  loc,
		Now:       time.Now,
	}
}

// Tick runs one pass at now: the daily recovery if due, then every due
// moment for every user. A user's marker is set only after delivery
// succeeds, so a failed send is retried on the next tick.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.In(s.Location)
	today := now.Format(time.DateOnly)
	hour, minute := now.Hour(), now.Minute()

	if hour == s.Cfg.RecoveryHour && minute < s.Cfg.RecoveryMinute && s.recoveredOn != today {
		n, err := s.DB.RecoverAll(s.Cfg.RecoverEnergy, s.Cfg.RecoverSocial)
		if err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		s.recoveredOn = today
		metrics.Recoveries.Inc()
		log.Info().Int64("users", n).Str("day", today).Msg("overnight recovery applied")
	}

	var due []Moment
	for _, m := range Moments {
		if m.InWindow(hour, minute) {
			due = append(due, m)
		}
	}
	if len(due) == 0 {
		return nil
	}

	users, err := s.DB.ListUsers()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, u := range users {
		for _, m := range due {
			if markerValue(u, m.Marker) == today {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.send(ctx, u.UserID, m, today); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) send(ctx context.Context, userID string, m Moment, today string) error {
	text := s.generate(ctx, userID, m)

	if err := s.Deliverer.Push(ctx, userID, text); err != nil {
		metrics.Deliveries.WithLabelValues(m.Name, "error").Inc()
		log.Error().Err(err).Str("user_id", userID).Str("moment", m.Name).Msg("proactive push failed")
		return nil
	}
	metrics.Deliveries.WithLabelValues(m.Name, "ok").Inc()

	if err := s.DB.UpdateUser(userID, store.Fields{m.Marker: today}); err != nil {
		return fmt.Errorf("mark %s for %s: %w", m.Name, userID, err)
	}
	log.Info().Str("user_id", userID).Str("moment", m.Name).Msg("proactive message sent")
	return nil
}

func (s *Scheduler) generate(ctx context.Context, userID string, m Moment) string {
	msgs, err := s.Composer.ComposeMoment(userID, m.Name)
	if err == nil {
		var resp *llm.Response
		resp, err = s.LLM.Generate(ctx, msgs, s.Opts)
		if err == nil && resp != nil && strings.TrimSpace(resp.Content) != "" {
			metrics.Generations.WithLabelValues(m.Name, "ok").Inc()
			return strings.TrimSpace(resp.Content)
		}
	}
	metrics.Generations.WithLabelValues(m.Name, "fallback").Inc()
	log.Warn().Err(err).Str("user_id", userID).Str("moment", m.Name).Msg("proactive generation failed, using fallback")
	return llm.MomentFallback(m.Name)
}

// Run ticks every Cfg.Interval until ctx is cancelled. A tick that is
// still running when the next is due causes the next to be skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.Location),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
	)
	c.Schedule(cron.Every(s.Cfg.Interval), cron.FuncJob(func() { s.tick(ctx) }))

	log.Info().Dur("interval", s.Cfg.Interval).Msg("scheduler started")
	s.tick(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.Tick(ctx, s.Now()); err != nil {
		metrics.SchedulerTicks.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("scheduler tick")
		return
	}
	metrics.SchedulerTicks.WithLabelValues("ok").Inc()
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
