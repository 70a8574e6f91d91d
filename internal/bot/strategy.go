// Package bot gives the match loop a uniform decide(state) → action surface
// over built-in Go strategies, Lua-scripted strategies, and remote players
// feeding actions through the turn collector.
package bot

import (
	"fmt"
	"sync"

	"github.com/spellduel/server/internal/engine"
	"github.com/spellduel/server/internal/scripting"
)

// Strategy produces one action per turn. self is the caller's wizard index
// in the snapshot (0 or 1). The snapshot is a deep copy; strategies may read
// it freely but mutations go nowhere.
type Strategy interface {
	Decide(s *engine.State, self int) engine.Action
}

// Config selects a strategy for one seat. JSON shape mirrors the HTTP API:
//
//	{"type":"builtin","name":"aggressive"}
//	{"type":"lua","name":"kiter"}
//	{"type":"remote","player_id":"p-42"}
type Config struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

const (
	TypeBuiltin = "builtin"
	TypeLua     = "lua"
	TypeRemote  = "remote"
)

// Player is one configured seat: its identity plus its strategy. Remote
// seats expose the pending-action slot the runtime fills after collection.
type Player struct {
	ID       string // player id for remote seats, strategy name otherwise
	Name     string // wizard display name
	Strategy Strategy
	Remote   bool
	Slot     *Slot
}

// Slot is a remote player's one-shot pending action. The runtime puts the
// collected action in; the strategy's Decide takes it out.
type Slot struct {
	mu  sync.Mutex
	act *engine.Action
}

func (s *Slot) Put(a engine.Action) {
	s.mu.Lock()
	s.act = &a
	s.mu.Unlock()
}

// Take consumes the stored action, falling back to the safe default.
func (s *Slot) Take() engine.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.act == nil {
		return engine.DefaultAction()
	}
	a := *s.act
	s.act = nil
	return a
}

// remoteStrategy replays whatever the collector delivered for this turn.
type remoteStrategy struct {
	slot *Slot
}

func (r *remoteStrategy) Decide(_ *engine.State, _ int) engine.Action {
	return r.slot.Take()
}

// Factory builds players from configs.
type Factory struct {
	scripts *scripting.Engine // nil disables lua strategies
}

func NewFactory(scripts *scripting.Engine) *Factory {
	return &Factory{scripts: scripts}
}

// Build resolves a config into a Player. seed feeds the deterministic RNG of
// randomized built-ins; two seats of the same session get distinct seeds.
func (f *Factory) Build(cfg Config, defaultName string, seed int64) (*Player, error) {
	name := cfg.Name
	if name == "" {
		name = defaultName
	}
	switch cfg.Type {
	case TypeBuiltin:
		st, err := builtinStrategy(cfg.Name, seed)
		if err != nil {
			return nil, err
		}
		return &Player{ID: cfg.Name, Name: name, Strategy: st}, nil
	case TypeLua:
		if f.scripts == nil {
			return nil, fmt.Errorf("lua strategies are disabled")
		}
		if !f.scripts.HasBot(cfg.Name) {
			return nil, fmt.Errorf("unknown lua bot %q", cfg.Name)
		}
		return &Player{ID: cfg.Name, Name: name, Strategy: &luaStrategy{engine: f.scripts, bot: cfg.Name}}, nil
	case TypeRemote:
		if cfg.PlayerID == "" {
			return nil, fmt.Errorf("remote seat needs a player_id")
		}
		slot := &Slot{}
		wname := cfg.Name
		if wname == "" {
			wname = cfg.PlayerID
		}
		return &Player{
			ID:       cfg.PlayerID,
			Name:     wname,
			Strategy: &remoteStrategy{slot: slot},
			Remote:   true,
			Slot:     slot,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", cfg.Type)
	}
}
