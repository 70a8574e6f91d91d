package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func idle() Action { return DefaultAction() }

func move(dx, dy int) Action {
	return Action{Move: &Position{dx, dy}}
}

func cast(name string, target *Position) Action {
	return Action{Spell: &SpellCast{Name: name, Target: target}}
}

func at(x, y int) *Position { return &Position{x, y} }

func TestInitialStatePlacesWizardsAtOpposingCorners(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("merlin", "zorak")

	if s.Turn != 0 {
		t.Errorf("initial turn = %d, want 0", s.Turn)
	}
	if got := s.Wizards[0].Pos; got != (Position{0, 0}) {
		t.Errorf("p1 starts at %s, want [0,0]", got)
	}
	if got := s.Wizards[1].Pos; got != (Position{9, 9}) {
		t.Errorf("p2 starts at %s, want [9,9]", got)
	}
	for _, w := range s.Wizards {
		if w.HP != MaxHP || w.Mana != MaxMana {
			t.Errorf("%s starts with hp=%d mana=%d, want %d/%d", w.Name, w.HP, w.Mana, MaxHP, MaxMana)
		}
	}
}

// TestDeterministicAdvance: two engines with the same seed and the same
// action sequence must produce bitwise-identical states every turn.
func TestDeterministicAdvance(t *testing.T) {
	const seed = 42
	e1 := New(nil, Options{}, seed)
	e2 := New(nil, Options{}, seed)
	s1 := e1.InitialState("a", "b")
	s2 := e2.InitialState("a", "b")

	for turn := 0; turn < 30; turn++ {
		a1 := move(1, 1)
		a2 := move(-1, 0)
		if turn%4 == 0 {
			a1.Spell = &SpellCast{Name: "summon"}
		}
		e1.Advance(s1, a1, a2)
		e2.Advance(s2, a1, a2)

		j1, _ := json.Marshal(s1)
		j2, _ := json.Marshal(s2)
		if string(j1) != string(j2) {
			t.Fatalf("states diverged on turn %d:\n%s\n%s", s1.Turn, j1, j2)
		}
	}
}

func TestOffBoardMoveIsRejected(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")

	e.Advance(s, move(-1, -1), idle())
	if got := s.Wizards[0].Pos; got != (Position{0, 0}) {
		t.Errorf("wizard left the board: %s", got)
	}

	e.Advance(s, move(1, 1), idle())
	if got := s.Wizards[0].Pos; got != (Position{1, 1}) {
		t.Errorf("legal move ended at %s, want [1,1]", got)
	}
}

func TestOversizedMoveDeltaSanitizedToStandStill(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")

	e.Advance(s, move(3, 0), idle())
	if got := s.Wizards[0].Pos; got != (Position{0, 0}) {
		t.Errorf("oversized delta moved the wizard to %s", got)
	}
}

// TestWizardCollisionCancelsSpells: when both wizards step onto the same
// cell, they bounce apart, take chip damage at most, and neither spell
// resolves.
func TestWizardCollisionCancelsSpells(t *testing.T) {
	e := New(nil, Options{}, 7)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{4, 4}
	s.Wizards[1].Pos = Position{6, 6}

	a1 := move(1, 1)
	a1.Spell = &SpellCast{Name: "fireball", Target: at(6, 6)}
	a2 := move(-1, -1)
	a2.Spell = &SpellCast{Name: "fireball", Target: at(4, 4)}

	events := e.Advance(s, a1, a2)

	if s.Wizards[0].Pos == s.Wizards[1].Pos {
		t.Errorf("wizards still share a cell at %s", s.Wizards[0].Pos)
	}
	for _, w := range s.Wizards {
		if w.Stats.SpellsCast != 0 {
			t.Errorf("%s cast a spell during a collision turn", w.Name)
		}
		if w.Mana != MaxMana {
			t.Errorf("%s paid mana for a fizzled spell: %d", w.Name, w.Mana)
		}
		if w.HP < MaxHP-CollisionDamage {
			t.Errorf("%s took %d damage, more than the collision cap", w.Name, MaxHP-w.HP)
		}
	}
	if !containsSubstring(events, "collide") {
		t.Errorf("no collision narrative in %v", events)
	}
}

func TestFireballRespectsRange(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{0, 0}
	s.Wizards[1].Pos = Position{6, 6}

	// Chebyshev 6 > range 5: the cast fizzles and costs nothing.
	e.Advance(s, cast("fireball", at(6, 6)), idle())
	if s.Wizards[1].HP != MaxHP {
		t.Errorf("out-of-range fireball dealt damage: hp=%d", s.Wizards[1].HP)
	}
	if s.Wizards[0].Mana != MaxMana {
		t.Errorf("out-of-range fireball cost mana: %d", s.Wizards[0].Mana)
	}

	// Close to Chebyshev 5: full damage.
	s.Wizards[0].Pos = Position{1, 1}
	e.Advance(s, cast("fireball", at(6, 6)), idle())
	if got := s.Wizards[1].HP; got != MaxHP-20 {
		t.Errorf("in-range fireball left hp=%d, want %d", got, MaxHP-20)
	}
	if got := s.Wizards[0].Mana; got != MaxMana-30+10 {
		t.Errorf("caster mana = %d after cost and regen", got)
	}
}

func TestFireballSplashHitsEnemiesOnly(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{2, 2}
	s.Wizards[1].Pos = Position{5, 5}
	// Caster's own minion adjacent to the blast center must not be splashed.
	// Both minions are inert so the minion phase stays out of the picture.
	mine := &Minion{ID: "a-1", Owner: "a", HP: MinionHP, Pos: Position{5, 4}}
	theirs := &Minion{ID: "b-1", Owner: "b", HP: MinionHP, Pos: Position{4, 5}}
	s.Minions = []*Minion{mine, theirs}

	e.Advance(s, cast("fireball", at(5, 5)), idle())

	if got := s.Wizards[1].HP; got != MaxHP-20 {
		t.Errorf("blast center hp=%d, want %d", got, MaxHP-20)
	}
	if mine.HP != MinionHP {
		t.Errorf("own minion splashed to hp=%d", mine.HP)
	}
	if theirs.HP != MinionHP-4 {
		t.Errorf("enemy minion hp=%d, want %d", theirs.HP, MinionHP-4)
	}
}

// TestShieldAbsorbsSingleHit: the shield eats one fireball and is consumed.
func TestShieldAbsorbsSingleHit(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{2, 2}
	s.Wizards[1].Pos = Position{5, 5}
	s.Wizards[1].ShieldActive = true

	e.Advance(s, cast("fireball", at(5, 5)), idle())

	if got := s.Wizards[1].HP; got != MaxHP {
		t.Errorf("shielded hit cost hp: %d", got)
	}
	if s.Wizards[1].ShieldActive {
		t.Error("shield survived the hit")
	}
}

func TestMeleeBypassesShield(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{4, 4}
	s.Wizards[1].Pos = Position{4, 5}
	s.Wizards[1].ShieldActive = true

	e.Advance(s, cast("melee_attack", at(4, 5)), idle())

	if got := s.Wizards[1].HP; got != MaxHP-10 {
		t.Errorf("melee through shield left hp=%d, want %d", got, MaxHP-10)
	}
	if !s.Wizards[1].ShieldActive {
		t.Error("melee consumed the shield")
	}
}

func TestCooldownBlocksImmediateRecast(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].HP = 50

	e.Advance(s, cast("heal", nil), idle())
	if got := s.Wizards[0].HP; got != 70 {
		t.Fatalf("first heal left hp=%d, want 70", got)
	}

	events := e.Advance(s, cast("heal", nil), idle())
	if got := s.Wizards[0].HP; got != 70 {
		t.Errorf("recast on cooldown changed hp to %d", got)
	}
	if !containsSubstring(events, "cooldown") {
		t.Errorf("no cooldown narrative in %v", events)
	}
}

func TestTargetedSpellWithoutTargetIsDropped(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")

	e.Advance(s, cast("fireball", nil), idle())
	if s.Wizards[0].Stats.SpellsCast != 0 {
		t.Error("untargeted fireball counted as a cast")
	}
	if s.Wizards[0].Mana != MaxMana {
		t.Errorf("untargeted fireball cost mana: %d", s.Wizards[0].Mana)
	}
}

func TestTeleportToOccupiedCellFizzles(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")

	e.Advance(s, cast("teleport", at(9, 9)), idle())
	if got := s.Wizards[0].Pos; got != (Position{0, 0}) {
		t.Errorf("teleport onto the enemy moved the caster to %s", got)
	}
	// Cost is paid once the cast is legal in range terms.
	if got := s.Wizards[0].Mana; got != MaxMana-20+10 {
		t.Errorf("caster mana = %d", got)
	}
}

func TestBlinkRangeTwo(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")

	e.Advance(s, cast("blink", at(2, 2)), idle())
	if got := s.Wizards[0].Pos; got != (Position{2, 2}) {
		t.Errorf("blink ended at %s, want [2,2]", got)
	}

	// Fresh duel: a blink past range 2 falls short and costs nothing.
	s = e.InitialState("a", "b")
	e.Advance(s, cast("blink", at(7, 7)), idle())
	if got := s.Wizards[0].Pos; got != (Position{0, 0}) {
		t.Errorf("out-of-range blink moved the caster to %s", got)
	}
	if got := s.Wizards[0].Mana; got != MaxMana {
		t.Errorf("out-of-range blink cost mana: %d", got)
	}
}

func TestManaRegenAndClamp(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Mana = 15

	e.Advance(s, idle(), idle())
	if got := s.Wizards[0].Mana; got != 25 {
		t.Errorf("regen gave mana=%d, want 25", got)
	}
	if got := s.Wizards[1].Mana; got != MaxMana {
		t.Errorf("full wizard regenned past cap: %d", got)
	}
}

func TestArtifactSpawnsOnSchedule(t *testing.T) {
	e := New(nil, Options{}, 3)
	s := e.InitialState("a", "b")

	for i := 0; i < 2; i++ {
		e.Advance(s, idle(), idle())
		if len(s.Artifacts) != 0 {
			t.Fatalf("artifact spawned early on turn %d", s.Turn)
		}
	}
	e.Advance(s, idle(), idle())
	if len(s.Artifacts) != 1 {
		t.Fatalf("expected one artifact after turn 3, got %d", len(s.Artifacts))
	}
	a := s.Artifacts[0]
	if a.SpawnTurn != 3 {
		t.Errorf("artifact spawn_turn = %d, want 3", a.SpawnTurn)
	}
	if s.Occupied(a.Pos) {
		t.Errorf("artifact spawned on an occupied cell %s", a.Pos)
	}
}

func TestArtifactPickupEffects(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].HP = 50
	s.Artifacts = []*Artifact{{Type: ArtifactHealth, Pos: Position{1, 1}, SpawnTurn: 0}}

	e.Advance(s, move(1, 1), idle())
	if got := s.Wizards[0].HP; got != 70 {
		t.Errorf("health artifact left hp=%d, want 70", got)
	}
	if len(s.Artifacts) != 0 {
		t.Error("artifact not consumed on pickup")
	}
	if s.Wizards[0].Stats.ArtifactsUsed != 1 {
		t.Errorf("artifacts_used = %d, want 1", s.Wizards[0].Stats.ArtifactsUsed)
	}
}

func TestWinnerByHPZero(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{4, 4}
	s.Wizards[1].Pos = Position{4, 5}
	s.Wizards[1].HP = 10

	e.Advance(s, cast("melee_attack", at(4, 5)), idle())
	if got := e.CheckWinner(s); got != OutcomeP1 {
		t.Errorf("winner = %v, want p1", got)
	}
}

// TestDrawWhenBothFallSameTurn: minions finish off both wizards in the same
// minion phase.
func TestDrawWhenBothFallSameTurn(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Wizards[0].Pos = Position{1, 1}
	s.Wizards[1].Pos = Position{8, 8}
	s.Wizards[0].HP = MinionDamage
	s.Wizards[1].HP = MinionDamage
	s.Minions = []*Minion{
		{ID: "a-1", Owner: "a", HP: MinionHP, Pos: Position{8, 7}, Ready: true},
		{ID: "b-1", Owner: "b", HP: MinionHP, Pos: Position{1, 2}, Ready: true},
	}

	e.Advance(s, idle(), idle())
	if got := e.CheckWinner(s); got != OutcomeDraw {
		t.Errorf("winner = %v, want draw (p1 hp=%d p2 hp=%d)",
			got, s.Wizards[0].HP, s.Wizards[1].HP)
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := New(nil, Options{}, 1)
	s := e.InitialState("a", "b")
	s.Minions = []*Minion{{ID: "a-1", Owner: "a", HP: MinionHP, Pos: Position{3, 3}}}
	s.Wizards[0].Cooldowns["heal"] = 2

	c := s.Clone()
	c.Wizards[0].HP = 1
	c.Wizards[0].Cooldowns["heal"] = 9
	c.Minions[0].HP = 1

	if s.Wizards[0].HP != MaxHP || s.Wizards[0].Cooldowns["heal"] != 2 || s.Minions[0].HP != MinionHP {
		t.Error("mutating the clone leaked into the original")
	}
}

func TestPositionJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Position{3, 7})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[3,7]" {
		t.Errorf("position marshals to %s, want [3,7]", b)
	}
	var p Position
	if err := json.Unmarshal([]byte("[5,2]"), &p); err != nil {
		t.Fatal(err)
	}
	if p != (Position{5, 2}) {
		t.Errorf("unmarshal gave %v", p)
	}
}

func containsSubstring(events []string, sub string) bool {
	for _, ev := range events {
		if strings.Contains(ev, sub) {
			return true
		}
	}
	return false
}
