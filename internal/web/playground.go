package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/spellduel/server/internal/bot"
	"github.com/spellduel/server/internal/engine"
	"github.com/spellduel/server/internal/session"
	"go.uber.org/zap"
)

type startRequest struct {
	Player1 bot.Config `json:"player_1_config"`
	Player2 bot.Config `json:"player_2_config"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	id, err := s.deps.Runtime.CreateSession(req.Player1, req.Player2)
	if err != nil {
		if errors.Is(err, session.ErrPlayerNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.deps.Log.Info("session started over http", zap.String("session", id))
	s.writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

type actionRequest struct {
	PlayerID string        `json:"player_id"`
	Turn     int           `json:"turn"`
	Action   engine.Action `json:"action_data"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Runtime.SubmitAction(id, req.PlayerID, req.Turn, req.Action); err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"turn":   req.Turn,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	active := s.deps.Registry.ListActive()
	infos := make([]session.Info, 0, len(active))
	for _, sess := range active {
		infos = append(infos, sess.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Runtime.Cleanup(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "session_id": id})
}
