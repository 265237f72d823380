package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/companion/internal/delivery"
	"github.com/lazypower/companion/internal/store"
)

const maxWebhookBody = 1 << 20

// handleCallback receives LINE webhook deliveries. Each text message is
// recorded synchronously and answered in the background, so the platform
// gets its 200 without waiting for the reply.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	if !delivery.VerifySignature(s.channelSecret, body, r.Header.Get("X-Line-Signature")) {
		log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature rejected")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	events, err := delivery.ParseTextEvents(body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		if err := s.pipeline.Handle(ev.UserID, ev.Text); err != nil {
			log.Error().Err(err).Str("user_id", ev.UserID).Msg("handle message")
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

type userView struct {
	UserID        string `json:"user_id"`
	Attachment    string `json:"attachment"`
	Mood          string `json:"mood"`
	Energy        int    `json:"energy"`
	Affection     int    `json:"affection"`
	SocialBattery int    `json:"social_battery"`
	LastMorning   string `json:"last_morning"`
	LastNight     string `json:"last_night"`
	LastRandom    string `json:"last_random"`
	LastActive    int64  `json:"last_active"`
	CreatedAt     int64  `json:"created_at"`
}

func newUserView(u store.UserState, style store.AttachmentStyle) userView {
	return userView{
		UserID:        u.UserID,
		Attachment:    string(style),
		Mood:          string(u.Mood),
		Energy:        u.Energy,
		Affection:     u.Affection,
		SocialBattery: u.SocialBattery,
		LastMorning:   u.LastMorning,
		LastNight:     u.LastNight,
		LastRandom:    u.LastRandom,
		LastActive:    u.LastActive,
		CreatedAt:     u.CreatedAt,
	}
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.ListUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		style, err := s.db.Attachment(u.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views = append(views, newUserView(u, style))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	u, err := s.db.GetUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	style, err := s.db.Attachment(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newUserView(*u, style))
}

func (s *Server) handleMoodHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	samples, err := s.db.MoodHistory(userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type sampleView struct {
		Day       string `json:"day"`
		Mood      string `json:"mood"`
		Energy    int    `json:"energy"`
		Affection int    `json:"affection"`
	}
	out := make([]sampleView, 0, len(samples))
	for _, m := range samples {
		out = append(out, sampleView{Day: m.Day, Mood: string(m.Mood), Energy: m.Energy, Affection: m.Affection})
	}
	writeJSON(w, http.StatusOK, out)
}
