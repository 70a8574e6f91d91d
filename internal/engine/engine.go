package engine

import (
	"fmt"
	"math/rand"

	"github.com/spellduel/server/internal/data"
)

// Options tune the per-turn rules. Zero values fall back to the defaults the
// duel was balanced around.
type Options struct {
	ArtifactSpawnRate int // spawn an artifact every N turns (0 = default 3)
	ManaRegen         int // mana restored per turn (0 = default 10)
}

func (o Options) withDefaults() Options {
	if o.ArtifactSpawnRate == 0 {
		o.ArtifactSpawnRate = 3
	}
	if o.ManaRegen == 0 {
		o.ManaRegen = 10
	}
	return o
}

// Engine advances a duel one turn at a time. Deterministic given the seed and
// the action sequence; all randomness flows through the single rand source.
// Not safe for concurrent use; each session owns one Engine.
type Engine struct {
	spells *data.SpellTable
	opts   Options
	rng    *rand.Rand
}

// New creates an engine over the given spell table. A nil table selects the
// built-in spell set.
func New(spells *data.SpellTable, opts Options, seed int64) *Engine {
	if spells == nil {
		spells = data.BuiltinSpellTable()
	}
	return &Engine{
		spells: spells,
		opts:   opts.withDefaults(),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Spells exposes the engine's spell table (read-only use).
func (e *Engine) Spells() *data.SpellTable { return e.spells }

// InitialState places the two wizards at opposing corners on turn 0.
func (e *Engine) InitialState(name1, name2 string) *State {
	mk := func(name string, pos Position) *Wizard {
		return &Wizard{
			Name:      name,
			Pos:       pos,
			HP:        MaxHP,
			Mana:      MaxMana,
			Cooldowns: make(map[string]int),
		}
	}
	return &State{
		Wizards: [2]*Wizard{
			mk(name1, Position{0, 0}),
			mk(name2, Position{BoardSize - 1, BoardSize - 1}),
		},
	}
}

// CheckWinner inspects wizard HP. Both down on the same turn is a draw.
func (e *Engine) CheckWinner(s *State) Outcome {
	p1Down := !s.Wizards[0].Alive()
	p2Down := !s.Wizards[1].Alive()
	switch {
	case p1Down && p2Down:
		return OutcomeDraw
	case p1Down:
		return OutcomeP2
	case p2Down:
		return OutcomeP1
	default:
		return OutcomeNone
	}
}

// Advance applies one turn: both actions resolve against the state in place.
// Returns the narrative lines produced by the turn. The phase order is fixed;
// see the turn tests for the observable contract.
func (e *Engine) Advance(s *State, a1, a2 Action) []string {
	t := &turn{engine: e, state: s}

	s.Turn++

	t.spawnArtifact()

	acts := [2]Action{t.validate(0, a1), t.validate(1, a2)}

	collided := t.moveWizards(acts)
	t.pickupArtifacts()

	if collided {
		t.logf("the wizards collide, both spells fizzle")
	} else {
		for i := 0; i < 2; i++ {
			t.castSpell(s.Wizards[i], acts[i].Spell)
		}
	}

	t.stepMinions()
	t.regenAndCooldowns()

	return t.events
}

// turn carries the scratch context for a single Advance call.
type turn struct {
	engine *Engine
	state  *State
	events []string
}

func (t *turn) logf(format string, args ...any) {
	t.events = append(t.events, fmt.Sprintf(format, args...))
}

func (t *turn) rng() *rand.Rand { return t.engine.rng }

// validate sanitizes the move and drops illegal spell casts up front so the
// narrative explains why nothing happened.
func (t *turn) validate(idx int, a Action) Action {
	w := t.state.Wizards[idx]
	out := a.Sanitize()
	if out.Spell == nil {
		return out
	}

	sp := t.engine.spells.Get(out.Spell.Name)
	switch {
	case sp == nil:
		t.logf("%s tries an unknown spell %q", w.Name, out.Spell.Name)
		out.Spell = nil
	case w.Mana < sp.ManaCost:
		t.logf("%s lacks mana for %s (%d < %d)", w.Name, sp.Name, w.Mana, sp.ManaCost)
		out.Spell = nil
	case w.Cooldowns[sp.Name] > 0:
		t.logf("%s's %s is on cooldown (%d turns)", w.Name, sp.Name, w.Cooldowns[sp.Name])
		out.Spell = nil
	case sp.Targeted && out.Spell.Target == nil:
		t.logf("%s casts %s with no target", w.Name, sp.Name)
		out.Spell = nil
	}
	return out
}

// regenAndCooldowns is phase 8: mana regen and cooldown decrement.
func (t *turn) regenAndCooldowns() {
	for _, w := range t.state.Wizards {
		w.Mana += t.engine.opts.ManaRegen
		if w.Mana > MaxMana {
			w.Mana = MaxMana
		}
		for name, cd := range w.Cooldowns {
			if cd > 0 {
				w.Cooldowns[name] = cd - 1
			}
		}
	}
}
