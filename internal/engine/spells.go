package engine

import (
	"strconv"

	"github.com/spellduel/server/internal/data"
)

// Phase 6: spell resolution, player 1 then player 2. The cast was already
// checked for mana and cooldown in the validation phase; range and target
// checks happen here because movement may have changed the geometry.

func (t *turn) castSpell(w *Wizard, cast *SpellCast) {
	if cast == nil || !w.Alive() {
		return
	}
	sp := t.engine.spells.Get(cast.Name)
	if sp == nil {
		return
	}

	var target Position
	if sp.Targeted {
		target = *cast.Target
		if !target.InBounds() {
			t.logf("%s aims %s off the board", w.Name, sp.Name)
			return
		}
		if sp.Range >= 0 && w.Pos.Chebyshev(target) > sp.Range {
			t.logf("%s's %s falls short of %s", w.Name, sp.Name, target)
			return
		}
	}

	// The cast is legal: pay the cost and start the cooldown.
	w.Mana -= sp.ManaCost
	w.Cooldowns[sp.Name] = sp.Cooldown
	w.Stats.SpellsCast++

	switch sp.Name {
	case "shield":
		w.ShieldActive = true
		t.logf("%s raises a shield", w.Name)
	case "heal":
		w.HP += sp.Heal
		if w.HP > MaxHP {
			w.HP = MaxHP
		}
		t.logf("%s heals for %d", w.Name, sp.Heal)
	case "teleport", "blink":
		t.castRelocate(w, sp, target)
	case "summon":
		t.castSummon(w)
	case "melee_attack":
		t.castMelee(w, sp, target)
	default:
		// Data-driven damage spells (fireball and any YAML additions).
		t.castDamage(w, sp, target)
	}
}

// castDamage resolves a targeted damage spell: full damage to the entity on
// the target cell, splash to enemy entities on the 8 surrounding cells.
// Splash applies whether or not the center connects.
func (t *turn) castDamage(w *Wizard, sp *data.SpellInfo, target Position) {
	t.logf("%s casts %s at %s", w.Name, sp.Name, target)

	if hw, hm := t.state.EntityAt(target); hw != nil || hm != nil {
		t.hitEntity(w, hw, hm, sp.Damage, true)
	}
	if sp.Splash <= 0 {
		return
	}
	for i := 0; i < 8; i++ {
		c := Position{target.X + neighborDX[i], target.Y + neighborDY[i]}
		if !c.InBounds() {
			continue
		}
		hw, hm := t.state.EntityAt(c)
		if hw == w || (hw == nil && hm == nil) {
			continue
		}
		if hm != nil && hm.Owner == w.Name {
			continue // splash burns enemies only
		}
		t.hitEntity(w, hw, hm, sp.Splash, true)
	}
}

// castMelee strikes an adjacent entity. Melee bypasses shields entirely.
func (t *turn) castMelee(w *Wizard, sp *data.SpellInfo, target Position) {
	if w.Pos.Manhattan(target) != 1 {
		t.logf("%s swings at %s but cannot reach", w.Name, target)
		return
	}
	hw, hm := t.state.EntityAt(target)
	if hw == nil && hm == nil {
		t.logf("%s strikes at empty air", w.Name)
		return
	}
	t.logf("%s strikes %s", w.Name, target)
	t.hitEntity(w, hw, hm, sp.Damage, false)
}

// hitEntity routes spell damage to a wizard or a minion and keeps the
// attacker's tally.
func (t *turn) hitEntity(attacker *Wizard, hw *Wizard, hm *Minion, dmg int, shieldApplies bool) {
	if hw != nil {
		dealt := t.damageWizard(hw, dmg, shieldApplies)
		attacker.Stats.DamageDealt += dealt
		if dealt > 0 {
			t.logf("%s takes %d damage (%d hp left)", hw.Name, dealt, hw.HP)
		}
		return
	}
	hm.HP -= dmg
	attacker.Stats.DamageDealt += dmg
	if hm.HP <= 0 {
		t.logf("%s's minion %s is destroyed", hm.Owner, hm.ID)
	} else {
		t.logf("minion %s takes %d damage (%d hp left)", hm.ID, dmg, hm.HP)
	}
}

// castRelocate handles teleport and blink. The destination must be empty;
// stepping onto an artifact cell picks it up immediately.
func (t *turn) castRelocate(w *Wizard, sp *data.SpellInfo, target Position) {
	if t.state.Occupied(target) {
		t.logf("%s's %s fizzles, %s is occupied", w.Name, sp.Name, target)
		return
	}
	w.Pos = target
	t.logf("%s %ss to %s", w.Name, sp.Name, target)
	t.pickupAt(w)
}

// castSummon raises a minion on a free adjacent cell. One live minion per
// wizard; the newcomer is inert until the end of this turn's minion phase.
func (t *turn) castSummon(w *Wizard) {
	if t.state.MinionOf(w.Name) != nil {
		t.logf("%s already commands a minion", w.Name)
		return
	}
	spots := t.scatterCells(w.Pos, 1)
	if len(spots) == 0 {
		t.logf("%s has no room to summon", w.Name)
		return
	}
	w.minionSeq++
	m := &Minion{
		ID:    minionID(w.Name, w.minionSeq),
		Owner: w.Name,
		HP:    MinionHP,
		Pos:   spots[0],
	}
	t.state.Minions = append(t.state.Minions, m)
	t.logf("%s summons minion %s at %s", w.Name, m.ID, m.Pos)
}

// minionID builds the unique id: owner name + counter, e.g. "merlin-1".
func minionID(owner string, seq int) string {
	return owner + "-" + strconv.Itoa(seq)
}
