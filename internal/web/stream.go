package web

import (
	"fmt"
	"net/http"

	"github.com/spellduel/server/internal/event"
	"go.uber.org/zap"
)

func sseHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

func writeFrame(w http.ResponseWriter, f event.Frame) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Event, f.Data)
}

// handleEvents is the live SSE stream. The subscription lives as long as the
// client connection; the broadcaster closing the stream (session over and
// drained) ends the response.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.deps.Registry.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	st := s.deps.Events.Subscribe(id)
	defer s.deps.Events.Unsubscribe(id, st)

	sseHeaders(w)
	flusher.Flush()

	s.deps.Log.Debug("sse subscriber connected", zap.String("session", id))
	for {
		select {
		case <-r.Context().Done():
			return
		case f, open := <-st.C():
			if !open {
				return
			}
			writeFrame(w, f)
			flusher.Flush()
		}
	}
}

// handleReplay streams the recorded turns back-to-back with no pacing,
// followed by the final summary when the session already ended. Works after
// the session was reaped as long as the recorder still holds the log.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, ok := s.deps.Replays.Events(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no recording for session")
		return
	}

	sseHeaders(w)
	flusher, _ := w.(http.Flusher)

	for _, ev := range events {
		f, err := event.Encode(event.TypeReplayTurn, ev)
		if err != nil {
			s.deps.Log.Warn("encode replay frame", zap.Error(err))
			continue
		}
		writeFrame(w, f)
	}
	if sum := s.deps.Replays.Summary(id); sum != nil {
		if f, err := event.Encode(event.TypeGameOver, sum); err == nil {
			writeFrame(w, f)
		}
	}
	if flusher != nil {
		flusher.Flush()
	}
}
