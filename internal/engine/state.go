package engine

import (
	"encoding/json"
	"fmt"
)

const (
	BoardSize = 10
	MaxHP     = 100
	MaxMana   = 100
	MinionHP  = 30

	// Damage dealt by a minion's melee hit.
	MinionDamage = 10

	// Upper bound (inclusive) of the random damage both entities take when
	// they collide on the same cell.
	CollisionDamage = 5

	// Artifact spawning stops once this many cells are occupied.
	artifactCellCap = 10
)

// Position is a board cell. Serialized as a two-element array [x,y].
type Position struct {
	X, Y int
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Position) UnmarshalJSON(b []byte) error {
	var arr [2]int
	if err := json.Unmarshal(b, &arr); err != nil {
		return fmt.Errorf("position must be [x,y]: %w", err)
	}
	p.X, p.Y = arr[0], arr[1]
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}

// InBounds reports whether the cell lies on the board.
func (p Position) InBounds() bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

// Chebyshev is the king-move distance, used for spell ranges.
func (p Position) Chebyshev(o Position) int {
	dx := abs(p.X - o.X)
	dy := abs(p.Y - o.Y)
	if dy > dx {
		return dy
	}
	return dx
}

// Manhattan is used for minion pathing and melee adjacency.
func (p Position) Manhattan(o Position) int {
	return abs(p.X-o.X) + abs(p.Y-o.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// SpellCast names a spell and, for targeted spells, the cell it is aimed at.
type SpellCast struct {
	Name   string    `json:"name"`
	Target *Position `json:"target,omitempty"`
}

// Action is one wizard's submission for one turn: an optional move delta and
// an optional spell. The zero Action (both nil) is the safe default.
type Action struct {
	Move  *Position  `json:"move"`
	Spell *SpellCast `json:"spell"`
}

// DefaultAction is substituted for missing or malformed submissions.
func DefaultAction() Action {
	return Action{Move: &Position{0, 0}}
}

// Sanitize clamps the action into legal shape: a move outside {-1,0,1}² is
// replaced with [0,0]. Spell legality (mana, cooldown, range) is checked
// during resolution, not here.
func (a Action) Sanitize() Action {
	out := a
	if out.Move != nil {
		if out.Move.X < -1 || out.Move.X > 1 || out.Move.Y < -1 || out.Move.Y > 1 {
			out.Move = &Position{0, 0}
		}
	}
	if out.Spell != nil && out.Spell.Name == "" {
		out.Spell = nil
	}
	return out
}

// PlayerStats accumulates per-wizard counters over a session.
type PlayerStats struct {
	SpellsCast    int `json:"spells_cast"`
	DamageDealt   int `json:"damage_dealt"`
	DamageTaken   int `json:"damage_taken"`
	ArtifactsUsed int `json:"artifacts_used"`
}

// Wizard is one of the two duelists. Mutated only by the engine.
type Wizard struct {
	Name         string         `json:"name"`
	Pos          Position       `json:"position"`
	HP           int            `json:"hp"`
	Mana         int            `json:"mana"`
	ShieldActive bool           `json:"shield_active"`
	Cooldowns    map[string]int `json:"cooldowns"`
	Stats        PlayerStats    `json:"stats"`

	minionSeq int // counter for minion ids
}

// Alive reports whether the wizard still stands.
func (w *Wizard) Alive() bool {
	return w.HP > 0
}

// Minion is a summoned entity. Inert the turn it is summoned, ready the next.
type Minion struct {
	ID    string   `json:"id"`
	Owner string   `json:"owner"`
	HP    int      `json:"hp"`
	Pos   Position `json:"position"`
	Ready bool     `json:"ready"`
}

// ArtifactType enumerates pickup effects.
type ArtifactType string

const (
	ArtifactHealth   ArtifactType = "health"
	ArtifactMana     ArtifactType = "mana"
	ArtifactCooldown ArtifactType = "cooldown"
)

var artifactTypes = []ArtifactType{ArtifactHealth, ArtifactMana, ArtifactCooldown}

// Artifact is a consumable pickup on the board.
type Artifact struct {
	Type      ArtifactType `json:"type"`
	Pos       Position     `json:"position"`
	SpawnTurn int          `json:"spawn_turn"`
}

// State is the full mutable game state for one session. Single writer: the
// session's match loop. Snapshots for broadcast are deep copies.
type State struct {
	Turn      int         `json:"turn"`
	Wizards   [2]*Wizard  `json:"wizards"`
	Minions   []*Minion   `json:"minions"` // summon order
	Artifacts []*Artifact `json:"artifacts"`
}

// Outcome is the winner-check result.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeP1
	OutcomeP2
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeP1:
		return "p1"
	case OutcomeP2:
		return "p2"
	case OutcomeDraw:
		return "draw"
	default:
		return "none"
	}
}

// Wizard returns the wizard at index i (0 or 1).
func (s *State) Wizard(i int) *Wizard { return s.Wizards[i] }

// Opponent returns the other wizard.
func (s *State) Opponent(w *Wizard) *Wizard {
	if s.Wizards[0] == w {
		return s.Wizards[1]
	}
	return s.Wizards[0]
}

// MinionOf returns the live minion owned by the named wizard, or nil.
func (s *State) MinionOf(owner string) *Minion {
	for _, m := range s.Minions {
		if m.Owner == owner && m.HP > 0 {
			return m
		}
	}
	return nil
}

// ArtifactAt returns the artifact on the given cell, or nil.
func (s *State) ArtifactAt(p Position) *Artifact {
	for _, a := range s.Artifacts {
		if a.Pos == p {
			return a
		}
	}
	return nil
}

// EntityAt reports what occupies the cell: a wizard, a minion, or nothing.
// Wizards are checked before minions, minions in summon order.
func (s *State) EntityAt(p Position) (*Wizard, *Minion) {
	for _, w := range s.Wizards {
		if w.Alive() && w.Pos == p {
			return w, nil
		}
	}
	for _, m := range s.Minions {
		if m.HP > 0 && m.Pos == p {
			return nil, m
		}
	}
	return nil, nil
}

// Occupied reports whether any wizard or live minion stands on the cell.
func (s *State) Occupied(p Position) bool {
	w, m := s.EntityAt(p)
	return w != nil || m != nil
}

// OccupiedCells counts cells taken by wizards, live minions and artifacts.
func (s *State) OccupiedCells() int {
	seen := make(map[Position]bool)
	for _, w := range s.Wizards {
		if w.Alive() {
			seen[w.Pos] = true
		}
	}
	for _, m := range s.Minions {
		if m.HP > 0 {
			seen[m.Pos] = true
		}
	}
	for _, a := range s.Artifacts {
		seen[a.Pos] = true
	}
	return len(seen)
}

// Clone returns a deep copy, safe to hand to broadcast serialization while
// the loop keeps mutating the original.
func (s *State) Clone() *State {
	c := &State{Turn: s.Turn}
	for i, w := range s.Wizards {
		cw := *w
		cw.Cooldowns = make(map[string]int, len(w.Cooldowns))
		for k, v := range w.Cooldowns {
			cw.Cooldowns[k] = v
		}
		c.Wizards[i] = &cw
	}
	c.Minions = make([]*Minion, len(s.Minions))
	for i, m := range s.Minions {
		cm := *m
		c.Minions[i] = &cm
	}
	c.Artifacts = make([]*Artifact, len(s.Artifacts))
	for i, a := range s.Artifacts {
		ca := *a
		c.Artifacts[i] = &ca
	}
	return c
}
