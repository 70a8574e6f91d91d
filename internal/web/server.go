// Package web is the HTTP boundary: the playground REST surface, the SSE and
// WebSocket event streams, and the lobby long-poll endpoints.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spellduel/server/internal/event"
	"github.com/spellduel/server/internal/lobby"
	"github.com/spellduel/server/internal/replay"
	"github.com/spellduel/server/internal/session"
	"go.uber.org/zap"
)

// Deps carries everything handlers need. All fields must be set except
// Lobby, which may be nil when matchmaking is disabled.
type Deps struct {
	Runtime  *session.Runtime
	Registry *session.Registry
	Events   *event.Broadcaster
	Replays  *replay.Recorder
	Lobby    *lobby.Matchmaker
	Log      *zap.Logger
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("POST /playground/start", s.handleStart)
	s.mux.HandleFunc("GET /playground/sessions", s.handleSessions)
	s.mux.HandleFunc("POST /playground/{id}/action", s.handleAction)
	s.mux.HandleFunc("GET /playground/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /playground/{id}/ws", s.handleWS)
	s.mux.HandleFunc("GET /playground/{id}/replay", s.handleReplay)
	s.mux.HandleFunc("DELETE /playground/{id}", s.handleCleanup)

	s.mux.HandleFunc("POST /lobby/join", s.handleLobbyJoin)
	s.mux.HandleFunc("DELETE /lobby/leave/{player_id}", s.handleLobbyLeave)
	s.mux.HandleFunc("GET /lobby/status", s.handleLobbyStatus)

	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.deps.Log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

// writeSubmitError maps submission failures to the documented status codes.
func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var turnErr *session.InvalidTurnError
	switch {
	case errors.As(err, &turnErr):
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "invalid turn",
			"expected": turnErr.Expected,
			"received": turnErr.Got,
		})
	case errors.Is(err, session.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrPlayerNotFound):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
