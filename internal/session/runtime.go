package session

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spellduel/server/internal/bot"
	"github.com/spellduel/server/internal/config"
	"github.com/spellduel/server/internal/data"
	"github.com/spellduel/server/internal/engine"
	"github.com/spellduel/server/internal/event"
	"github.com/spellduel/server/internal/replay"
	"go.uber.org/zap"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// End conditions recorded in the final summary.
const (
	EndHPZero    = "hp_zero"
	EndMaxTurns  = "max_turns"
	EndCancelled = "cancelled"
)

// PlayerStore validates player ids against the player directory.
type PlayerStore interface {
	PlayerExists(ctx context.Context, playerID string) (bool, error)
}

// ResultSink receives the final summary of every finished session.
type ResultSink interface {
	RecordResult(ctx context.Context, sum replay.Summary) error
}

// Session is one running (or recently finished) duel: the engine state, the
// two seats, the action collector, and the supervised loop handle.
type Session struct {
	ID        string
	CreatedAt time.Time
	Players   [2]*bot.Player
	Collector *Collector

	eng   *engine.Engine
	state *engine.State

	mu     sync.Mutex
	status Status
	winner string
	turn   int // last completed turn

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done closes when the match loop has fully unwound.
func (s *Session) Done() <-chan struct{} { return s.done }

// Info is the read-only session view for listings.
type Info struct {
	SessionID string    `json:"session_id"`
	Status    Status    `json:"status"`
	Players   [2]string `json:"players"`
	Turn      int       `json:"turn"`
	Winner    string    `json:"winner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		SessionID: s.ID,
		Status:    s.status,
		Players:   [2]string{s.Players[0].Name, s.Players[1].Name},
		Turn:      s.turn,
		Winner:    s.winner,
		CreatedAt: s.CreatedAt,
	}
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	if s.status == StatusWaiting || s.status == StatusActive {
		s.status = st
	}
	s.mu.Unlock()
}

// setTerminal transitions into a terminal status once. Returns false when the
// session already ended, which makes finalize idempotent.
func (s *Session) setTerminal(st Status, winner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted || s.status == StatusCancelled {
		return false
	}
	s.status = st
	s.winner = winner
	return true
}

func (s *Session) setTurn(t int) {
	s.mu.Lock()
	s.turn = t
	s.mu.Unlock()
}

// RemotePlayer returns the remote seat with the given player id, or nil.
func (s *Session) RemotePlayer(playerID string) *bot.Player {
	for _, p := range s.Players {
		if p.Remote && p.ID == playerID {
			return p
		}
	}
	return nil
}

func (s *Session) isBuiltin(playerID string) bool {
	for _, p := range s.Players {
		if p.ID == playerID {
			return !p.Remote
		}
	}
	return false
}

// Runtime owns every session loop. Construction order at boot is recorder →
// broadcaster → registry → matchmaker; the runtime sits across the middle
// two and is torn down before the recorder.
type Runtime struct {
	cfg     *config.Config
	spells  *data.SpellTable
	reg     *Registry
	bc      *event.Broadcaster
	rec     *replay.Recorder
	factory *bot.Factory
	players PlayerStore // nil skips directory validation
	results ResultSink  // nil skips persistence
	log     *zap.Logger

	seedFn func() int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRuntime(cfg *config.Config, spells *data.SpellTable, reg *Registry, bc *event.Broadcaster, rec *replay.Recorder, factory *bot.Factory, players PlayerStore, results ResultSink, log *zap.Logger) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	if spells == nil {
		spells = data.BuiltinSpellTable()
	}
	return &Runtime{
		cfg:     cfg,
		spells:  spells,
		reg:     reg,
		bc:      bc,
		rec:     rec,
		factory: factory,
		players: players,
		results: results,
		log:     log,
		seedFn:  func() int64 { return time.Now().UnixNano() },
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetSeedFunc overrides the session seed source. Tests use a fixed seed to
// get bitwise-identical turn sequences.
func (rt *Runtime) SetSeedFunc(fn func() int64) { rt.seedFn = fn }

// Registry exposes the session registry.
func (rt *Runtime) Registry() *Registry { return rt.reg }

// CreateSession builds both seats, registers the session, and starts its
// match loop. Returns immediately with the new id; the loop runs on its own.
func (rt *Runtime) CreateSession(cfg1, cfg2 bot.Config) (string, error) {
	if err := rt.validateRemote(cfg1); err != nil {
		return "", err
	}
	if err := rt.validateRemote(cfg2); err != nil {
		return "", err
	}

	seed := rt.seedFn()
	p1, err := rt.factory.Build(cfg1, "player_1", seed+1)
	if err != nil {
		return "", fmt.Errorf("player_1 config: %w", err)
	}
	p2, err := rt.factory.Build(cfg2, "player_2", seed+2)
	if err != nil {
		return "", fmt.Errorf("player_2 config: %w", err)
	}
	// Seat ids and wizard names key collector slots and engine entities.
	if p2.ID == p1.ID {
		p2.ID += "#2"
	}
	if p2.Name == p1.Name {
		p2.Name += "-2"
	}

	eng := engine.New(rt.spells, engine.Options{
		ArtifactSpawnRate: rt.cfg.Game.ArtifactSpawnRate,
		ManaRegen:         rt.cfg.Game.ManaRegen,
	}, seed)

	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Players:   [2]*bot.Player{p1, p2},
		Collector: NewCollector(),
		eng:       eng,
		state:     eng.InitialState(p1.Name, p2.Name),
		status:    StatusWaiting,
		done:      make(chan struct{}),
	}

	loopCtx, loopCancel := context.WithCancel(rt.ctx)
	sess.cancel = loopCancel

	rt.reg.Insert(sess)
	rt.wg.Add(1)
	go rt.runLoop(loopCtx, sess)

	rt.log.Info("session created",
		zap.String("session", sess.ID),
		zap.String("p1", p1.Name), zap.String("p2", p2.Name))
	return sess.ID, nil
}

func (rt *Runtime) validateRemote(cfg bot.Config) error {
	if cfg.Type != bot.TypeRemote || rt.players == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ok, err := rt.players.PlayerExists(ctx, cfg.PlayerID)
	if err != nil {
		return fmt.Errorf("player lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, cfg.PlayerID)
	}
	return nil
}

// SubmitAction routes a remote player's action into the session's collector.
func (rt *Runtime) SubmitAction(sessionID, playerID string, turn int, act engine.Action) error {
	s, ok := rt.reg.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if s.RemotePlayer(playerID) == nil {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return s.Collector.Submit(playerID, turn, act)
}

// Cleanup cancels the session's loop and waits for it to unwind. The loop
// emits the terminal event, closes subscriber streams, and reaps the
// registry entry on its way out.
func (rt *Runtime) Cleanup(sessionID string) error {
	s, ok := rt.reg.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	s.cancel()
	<-s.done
	return nil
}

// Shutdown cancels every session and waits for all loops to exit.
func (rt *Runtime) Shutdown() {
	rt.cancel()
	rt.wg.Wait()
}

// ── Match loop ─────────────────────────────────────────────────────

func (rt *Runtime) runLoop(ctx context.Context, s *Session) {
	defer rt.wg.Done()
	defer close(s.done)

	// An engine invariant violation is a programmer error; the session dies,
	// the process does not.
	defer func() {
		if r := recover(); r != nil {
			rt.log.Error("session loop panic",
				zap.String("session", s.ID), zap.Any("panic", r))
			rt.bc.Broadcast(s.ID, event.TypeError,
				map[string]string{"session_id": s.ID, "error": "internal engine error"})
			rt.finalize(s, engine.OutcomeNone, EndCancelled)
		}
	}()

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	if hb := rt.cfg.Events.HeartbeatInterval; hb > 0 {
		go rt.heartbeatLoop(hbCtx, s.ID, hb.Std())
	}

	rt.bc.Broadcast(s.ID, event.TypeSessionStart, map[string]any{
		"session_id": s.ID,
		"players":    [2]string{s.Players[0].Name, s.Players[1].Name},
		"game_state": s.state.Clone(),
	})
	s.setStatus(StatusActive)

	expected := []string{s.Players[0].ID, s.Players[1].ID}

	for {
		if ctx.Err() != nil {
			hbCancel()
			rt.finalize(s, engine.OutcomeNone, EndCancelled)
			return
		}

		turn := s.state.Turn + 1
		collected := s.Collector.Collect(ctx, turn, expected, s.isBuiltin, rt.cfg.Game.TurnTimeout.Std())
		if ctx.Err() != nil {
			hbCancel()
			rt.finalize(s, engine.OutcomeNone, EndCancelled)
			return
		}

		snap := s.state.Clone()
		var acts [2]engine.Action
		for i, p := range s.Players {
			if p.Remote {
				p.Slot.Put(collected[p.ID])
			}
			acts[i] = p.Strategy.Decide(snap, i).Sanitize()
		}

		events := s.eng.Advance(s.state, acts[0], acts[1])
		s.setTurn(s.state.Turn)

		outcome := s.eng.CheckWinner(s.state)
		endCond := EndHPZero
		if outcome == engine.OutcomeNone && rt.cfg.Game.MaxTurns > 0 && s.state.Turn >= rt.cfg.Game.MaxTurns {
			outcome = engine.OutcomeDraw
			endCond = EndMaxTurns
		}

		te := replay.TurnEvent{
			Turn:      s.state.Turn,
			GameState: s.state.Clone(),
			Actions:   acts,
			Events:    events,
			LogLine:   logLine(s.state),
			Timestamp: time.Now().UTC(),
		}
		rt.rec.Append(s.ID, te)
		rt.bc.Broadcast(s.ID, event.TypeTurnUpdate, te)

		if outcome != engine.OutcomeNone {
			hbCancel()
			rt.finalize(s, outcome, endCond)
			return
		}

		// Cooperative fairness: pacing delay when configured, otherwise just
		// yield so other session loops get scheduled.
		if d := rt.cfg.Game.TurnDelay; d > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.Std()):
			}
		} else {
			runtime.Gosched()
		}
	}
}

func (rt *Runtime) heartbeatLoop(ctx context.Context, sessionID string, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rt.bc.Heartbeat(sessionID)
		}
	}
}

// finalize ends the session exactly once: summary to the recorder and the
// result sink, game_over to subscribers, then stream close and reap after a
// short drain window.
func (rt *Runtime) finalize(s *Session, outcome engine.Outcome, endCond string) {
	var winner string
	switch outcome {
	case engine.OutcomeP1:
		winner = s.Players[0].Name
	case engine.OutcomeP2:
		winner = s.Players[1].Name
	}
	status := StatusCompleted
	outcomeStr := outcome.String()
	if endCond == EndCancelled {
		status = StatusCancelled
		outcomeStr = "cancelled"
	}
	if !s.setTerminal(status, winner) {
		return
	}

	sum := replay.Summary{
		SessionID:    s.ID,
		Winner:       winner,
		Outcome:      outcomeStr,
		Rounds:       s.state.Turn,
		DurationSecs: time.Since(s.CreatedAt).Seconds(),
		EndCondition: endCond,
		PlayerStats: map[string]engine.PlayerStats{
			s.Players[0].Name: s.state.Wizards[0].Stats,
			s.Players[1].Name: s.state.Wizards[1].Stats,
		},
	}
	rt.rec.Finish(s.ID, sum)
	rt.bc.Broadcast(s.ID, event.TypeGameOver, sum)

	if rt.results != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.results.RecordResult(ctx, sum); err != nil {
			rt.log.Error("record result", zap.String("session", s.ID), zap.Error(err))
		}
		cancel()
	}

	if d := rt.cfg.Events.DrainWindow; d > 0 {
		time.Sleep(d.Std())
	}
	rt.bc.CloseAll(s.ID)
	rt.reg.Remove(s.ID)

	rt.log.Info("session finished",
		zap.String("session", s.ID),
		zap.String("status", string(status)),
		zap.String("winner", winner),
		zap.Int("rounds", sum.Rounds))
}

func logLine(s *engine.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d", s.Turn)
	for _, w := range s.Wizards {
		fmt.Fprintf(&b, " | %s hp=%d mana=%d", w.Name, w.HP, w.Mana)
	}
	if n := len(s.Minions); n > 0 {
		fmt.Fprintf(&b, " | minions=%d", n)
	}
	return b.String()
}
