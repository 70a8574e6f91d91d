// Package replay keeps the authoritative per-turn record of every session:
// an append-only in-memory log used for replay streaming, optionally mirrored
// to line-delimited JSON files.
package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spellduel/server/internal/engine"
	"go.uber.org/zap"
)

// TurnEvent is the complete record of one advanced turn. It is both the
// broadcast payload for turn_update frames and the unit stored for replay.
type TurnEvent struct {
	Turn      int              `json:"turn"`
	GameState *engine.State    `json:"game_state"`
	Actions   [2]engine.Action `json:"actions"`
	Events    []string         `json:"events"`
	LogLine   string           `json:"log_line"`
	Timestamp time.Time        `json:"timestamp"`
}

// Summary is the final entry appended when a session ends.
type Summary struct {
	SessionID    string                        `json:"session_id"`
	Winner       string                        `json:"winner"` // wizard name, or "" on draw
	Outcome      string                        `json:"outcome"`
	Rounds       int                           `json:"rounds"`
	DurationSecs float64                       `json:"duration_s"`
	EndCondition string                        `json:"end_condition"` // hp_zero | draw | max_turns | cancelled
	PlayerStats  map[string]engine.PlayerStats `json:"player_stats"`
}

type sessionLog struct {
	events  []TurnEvent
	summary *Summary
	mirror  *os.File
}

// Recorder is safe for one writer per session (the match loop) and any
// number of concurrent readers.
type Recorder struct {
	mu        sync.Mutex
	logs      map[string]*sessionLog
	mirrorDir string
	log       *zap.Logger
}

func NewRecorder(mirrorDir string, log *zap.Logger) *Recorder {
	return &Recorder{
		logs:      make(map[string]*sessionLog),
		mirrorDir: mirrorDir,
		log:       log,
	}
}

func (r *Recorder) sessionLog(sessionID string) *sessionLog {
	sl, ok := r.logs[sessionID]
	if !ok {
		sl = &sessionLog{}
		if r.mirrorDir != "" {
			sl.mirror = r.openMirror(sessionID)
		}
		r.logs[sessionID] = sl
	}
	return sl
}

func (r *Recorder) openMirror(sessionID string) *os.File {
	if err := os.MkdirAll(r.mirrorDir, 0o755); err != nil {
		r.log.Warn("create mirror dir", zap.Error(err))
		return nil
	}
	path := filepath.Join(r.mirrorDir, sessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		r.log.Warn("open mirror file", zap.String("path", path), zap.Error(err))
		return nil
	}
	return f
}

// Append records one turn.
func (r *Recorder) Append(sessionID string, ev TurnEvent) {
	r.mu.Lock()
	sl := r.sessionLog(sessionID)
	sl.events = append(sl.events, ev)
	mirror := sl.mirror
	r.mu.Unlock()

	if mirror != nil {
		r.writeLine(mirror, ev)
	}
}

// Finish appends the final summary and closes the file mirror. The in-memory
// log stays available for replay until process exit.
func (r *Recorder) Finish(sessionID string, sum Summary) {
	r.mu.Lock()
	sl := r.sessionLog(sessionID)
	sl.summary = &sum
	mirror := sl.mirror
	sl.mirror = nil
	r.mu.Unlock()

	if mirror != nil {
		r.writeLine(mirror, sum)
		if err := mirror.Close(); err != nil {
			r.log.Warn("close mirror file", zap.Error(err))
		}
	}
}

func (r *Recorder) writeLine(f *os.File, v any) {
	line, err := json.Marshal(v)
	if err != nil {
		r.log.Warn("marshal mirror line", zap.Error(err))
		return
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		r.log.Warn("write mirror line", zap.Error(err))
	}
}

// Events returns an immutable snapshot of the session's recorded turns.
// The second result reports whether the session was ever recorded.
func (r *Recorder) Events(sessionID string) ([]TurnEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, ok := r.logs[sessionID]
	if !ok {
		return nil, false
	}
	out := make([]TurnEvent, len(sl.events))
	copy(out, sl.events)
	return out, true
}

// Summary returns the final summary, or nil while the session is running.
func (r *Recorder) Summary(sessionID string) *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl, ok := r.logs[sessionID]
	if !ok || sl.summary == nil {
		return nil
	}
	sum := *sl.summary
	return &sum
}

// Shutdown closes any open file mirrors.
func (r *Recorder) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sl := range r.logs {
		if sl.mirror != nil {
			sl.mirror.Close()
			sl.mirror = nil
		}
	}
}
