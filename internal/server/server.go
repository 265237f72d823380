package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lazypower/companion/internal/engine"
	"github.com/lazypower/companion/internal/store"
)

// Server is the webhook and inspection HTTP server.
type Server struct {
	db            *store.DB
	pipeline      *engine.Pipeline
	channelSecret string
	router        chi.Router
	version       string
	started       time.Time
}

// New creates a Server. Webhook bodies are verified against channelSecret.
func New(db *store.DB, pipeline *engine.Pipeline, channelSecret, version string) *Server {
	s := &Server{
		db:            db,
		pipeline:      pipeline,
		channelSecret: channelSecret,
		version:       version,
		started:       time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/", s.handleHome)
	r.Post("/callback", s.handleCallback)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/users", s.handleListUsers)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/moods", s.handleMoodHistory)
			r.Get("/memories", s.handleMemories)
			r.Get("/prompt", s.handlePrompt)
		})
	})

	s.router = r
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Bot is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
