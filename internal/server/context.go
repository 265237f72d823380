package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleMemories returns the memories that would be injected into the
// user's next prompt.
func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	mems, err := s.pipeline.Memories.Top(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type memoryView struct {
		ID         int64  `json:"id"`
		Content    string `json:"content"`
		Importance int    `json:"importance"`
		CreatedAt  int64  `json:"created_at"`
	}
	out := make([]memoryView, 0, len(mems))
	for _, m := range mems {
		out = append(out, memoryView{ID: m.ID, Content: m.Content, Importance: m.Importance, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePrompt renders the system prompt the model would see for the
// user right now. Read-only: unknown users get the default state.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	prompt, err := s.pipeline.Composer.Compose(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}
