package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spellduel/server/internal/lobby"
	"github.com/spellduel/server/internal/session"
)

type joinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
}

// handleLobbyJoin is a long-poll: the response is held open until a match is
// made, the lobby timeout fires, or the client goes away.
func (s *Server) handleLobbyJoin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lobby == nil {
		s.writeError(w, http.StatusServiceUnavailable, "lobby disabled")
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	match, err := s.deps.Lobby.Join(r.Context(), req.PlayerID, req.Name)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{
			"session_id":    match.SessionID,
			"player_id":     req.PlayerID,
			"opponent_id":   match.OpponentID,
			"opponent_name": match.OpponentName,
		})
	case errors.Is(err, lobby.ErrAlreadyInLobby):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrPlayerNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lobby.ErrJoinTimeout):
		s.writeError(w, http.StatusRequestTimeout, err.Error())
	case errors.Is(err, lobby.ErrLobbyClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, lobby.ErrNotInLobby):
		// The player withdrew from another connection while this poll waited.
		s.writeError(w, http.StatusConflict, "join withdrawn")
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleLobbyLeave(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lobby == nil {
		s.writeError(w, http.StatusServiceUnavailable, "lobby disabled")
		return
	}
	playerID := r.PathValue("player_id")
	if err := s.deps.Lobby.Leave(playerID); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "left", "player_id": playerID})
}

func (s *Server) handleLobbyStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Lobby == nil {
		s.writeError(w, http.StatusServiceUnavailable, "lobby disabled")
		return
	}
	resp := map[string]any{"queue_size": s.deps.Lobby.Size()}
	if pid := r.URL.Query().Get("player_id"); pid != "" {
		resp["position"] = s.deps.Lobby.Position(pid)
	}
	s.writeJSON(w, http.StatusOK, resp)
}
