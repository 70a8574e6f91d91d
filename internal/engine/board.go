package engine

// Phases 2, 4 and 5 of the turn: artifact spawning, wizard movement with
// collision resolution, and artifact pickup.

var neighborDX = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
var neighborDY = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}

// spawnArtifact places one artifact every ArtifactSpawnRate turns, on a
// uniformly chosen free cell, unless the board is already crowded.
func (t *turn) spawnArtifact() {
	s := t.state
	rate := t.engine.opts.ArtifactSpawnRate
	if rate <= 0 || s.Turn%rate != 0 {
		return
	}
	if s.OccupiedCells() > artifactCellCap {
		return
	}

	var free []Position
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			p := Position{x, y}
			if !s.Occupied(p) && s.ArtifactAt(p) == nil {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return
	}

	typ := artifactTypes[t.rng().Intn(len(artifactTypes))]
	pos := free[t.rng().Intn(len(free))]
	s.Artifacts = append(s.Artifacts, &Artifact{Type: typ, Pos: pos, SpawnTurn: s.Turn})
	t.logf("a %s artifact appears at %s", typ, pos)
}

// moveWizards resolves both move deltas. Returns true when the wizards
// collided, which cancels the spell phase for this turn.
func (t *turn) moveWizards(acts [2]Action) bool {
	s := t.state
	var next [2]Position
	for i, w := range s.Wizards {
		next[i] = w.Pos
		if mv := acts[i].Move; mv != nil {
			cand := Position{w.Pos.X + mv.X, w.Pos.Y + mv.Y}
			if cand.InBounds() {
				next[i] = cand
			}
			// off-board moves are rejected; the wizard holds its cell
		}
	}

	if next[0] != next[1] {
		s.Wizards[0].Pos = next[0]
		s.Wizards[1].Pos = next[1]
		return false
	}

	// Wizard collision: both take random chip damage and bounce apart.
	cell := next[0]
	for _, w := range s.Wizards {
		dmg := t.rng().Intn(CollisionDamage + 1)
		dealt := t.damageWizard(w, dmg, true)
		if dealt > 0 {
			t.logf("%s takes %d collision damage", w.Name, dealt)
		}
	}

	spots := t.scatterCells(cell, 2)
	if len(spots) == 2 {
		s.Wizards[0].Pos = spots[0]
		s.Wizards[1].Pos = spots[1]
		t.logf("%s and %s bounce to %s and %s",
			s.Wizards[0].Name, s.Wizards[1].Name, spots[0], spots[1])
	} else {
		// Not enough room to scatter; both hold their pre-move cells.
		t.logf("%s and %s rebound off each other", s.Wizards[0].Name, s.Wizards[1].Name)
	}
	return true
}

// scatterCells picks up to n distinct free cells adjacent to p, in random
// order. Returns fewer than n when the neighborhood is crowded.
func (t *turn) scatterCells(p Position, n int) []Position {
	var free []Position
	for i := 0; i < 8; i++ {
		c := Position{p.X + neighborDX[i], p.Y + neighborDY[i]}
		if c.InBounds() && !t.state.Occupied(c) {
			free = append(free, c)
		}
	}
	if len(free) < n {
		return nil
	}
	perm := t.rng().Perm(len(free))
	out := make([]Position, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, free[idx])
	}
	return out
}

// pickupArtifacts applies any artifact under either wizard, player 1 first.
func (t *turn) pickupArtifacts() {
	for _, w := range t.state.Wizards {
		t.pickupAt(w)
	}
}

// pickupAt consumes the artifact under the wizard, if any. Also called after
// teleport and blink, which relocate mid-turn.
func (t *turn) pickupAt(w *Wizard) {
	a := t.state.ArtifactAt(w.Pos)
	if a == nil {
		return
	}
	switch a.Type {
	case ArtifactHealth:
		w.HP += 20
		if w.HP > MaxHP {
			w.HP = MaxHP
		}
		t.logf("%s picks up a health artifact (+20 hp)", w.Name)
	case ArtifactMana:
		w.Mana += 30
		if w.Mana > MaxMana {
			w.Mana = MaxMana
		}
		t.logf("%s picks up a mana artifact (+30 mana)", w.Name)
	case ArtifactCooldown:
		for name, cd := range w.Cooldowns {
			if cd > 0 {
				w.Cooldowns[name] = cd - 1
			}
		}
		t.logf("%s picks up a cooldown artifact", w.Name)
	}
	w.Stats.ArtifactsUsed++
	t.removeArtifact(a)
}

func (t *turn) removeArtifact(target *Artifact) {
	arts := t.state.Artifacts
	for i, a := range arts {
		if a == target {
			t.state.Artifacts = append(arts[:i], arts[i+1:]...)
			return
		}
	}
}

// damageWizard applies damage to a wizard, honoring the single-use shield
// when shieldApplies is set. Returns the hp actually lost.
func (t *turn) damageWizard(w *Wizard, dmg int, shieldApplies bool) int {
	if dmg <= 0 {
		return 0
	}
	if shieldApplies && w.ShieldActive {
		sp := t.engine.spells.Get("shield")
		block := 20
		if sp != nil && sp.Block > 0 {
			block = sp.Block
		}
		w.ShieldActive = false
		dmg -= block
		if dmg <= 0 {
			t.logf("%s's shield absorbs the hit", w.Name)
			return 0
		}
		t.logf("%s's shield shatters", w.Name)
	}
	w.HP -= dmg
	if w.HP < 0 {
		w.HP = 0
	}
	w.Stats.DamageTaken += dmg
	return dmg
}
