package engine

// Phase 7: minions act in summon order. Each ready minion walks one BFS step
// toward its nearest enemy and attacks when adjacent. Minions summoned this
// turn stand inert and become ready at the end of the phase.

func (t *turn) stepMinions() {
	for _, m := range t.state.Minions {
		if m.HP <= 0 || !m.Ready {
			continue
		}
		t.stepMinion(m)
	}
	for _, m := range t.state.Minions {
		if m.HP > 0 {
			m.Ready = true
		}
	}
	t.cullMinions()
}

func (t *turn) stepMinion(m *Minion) {
	tw, tm := t.nearestEnemy(m)
	if tw == nil && tm == nil {
		return
	}
	targetPos := enemyPos(tw, tm)

	if m.Pos.Manhattan(targetPos) > 1 {
		next, ok := t.bfsStep(m.Pos, targetPos)
		if ok {
			if hw, hm := t.state.EntityAt(next); hw != nil || hm != nil {
				t.entityCollision(m, hw, hm, next)
				return
			}
			m.Pos = next
		}
	}

	if m.HP <= 0 {
		return
	}
	// Re-resolve after moving: the target may have scattered or died earlier
	// in the phase.
	if m.Pos.Manhattan(targetPos) <= 1 {
		t.minionAttack(m, tw, tm)
	}
}

// nearestEnemy picks the closest opposing entity by Manhattan distance. Ties
// break by scan order: the enemy wizard first, then enemy minions in summon
// order.
func (t *turn) nearestEnemy(m *Minion) (*Wizard, *Minion) {
	var bw *Wizard
	var bm *Minion
	best := -1

	consider := func(p Position, w *Wizard, mm *Minion) {
		d := m.Pos.Manhattan(p)
		if best == -1 || d < best {
			best = d
			bw, bm = w, mm
		}
	}

	for _, w := range t.state.Wizards {
		if w.Name != m.Owner && w.Alive() {
			consider(w.Pos, w, nil)
		}
	}
	for _, other := range t.state.Minions {
		if other.Owner != m.Owner && other.HP > 0 {
			consider(other.Pos, nil, other)
		}
	}
	return bw, bm
}

func enemyPos(w *Wizard, m *Minion) Position {
	if w != nil {
		return w.Pos
	}
	return m.Pos
}

func (t *turn) minionAttack(m *Minion, tw *Wizard, tm *Minion) {
	if tw != nil {
		if !tw.Alive() {
			return
		}
		// Minion melee ignores shields and does not consume them.
		tw.HP -= MinionDamage
		if tw.HP < 0 {
			tw.HP = 0
		}
		tw.Stats.DamageTaken += MinionDamage
		t.logf("minion %s claws %s for %d (%d hp left)", m.ID, tw.Name, MinionDamage, tw.HP)
		return
	}
	if tm.HP <= 0 {
		return
	}
	tm.HP -= MinionDamage
	if tm.HP <= 0 {
		t.logf("minion %s tears %s apart", m.ID, tm.ID)
	} else {
		t.logf("minion %s claws %s for %d", m.ID, tm.ID, MinionDamage)
	}
}

// entityCollision resolves a minion walking into an occupied cell: both
// entities take random chip damage and scatter, the shield counting only for
// wizards. With no room to scatter both hold their cells.
func (t *turn) entityCollision(m *Minion, hw *Wizard, hm *Minion, cell Position) {
	mDmg := t.rng().Intn(CollisionDamage + 1)
	oDmg := t.rng().Intn(CollisionDamage + 1)

	m.HP -= mDmg
	if hw != nil {
		dealt := t.damageWizard(hw, oDmg, true)
		t.logf("minion %s crashes into %s (%d/%d damage)", m.ID, hw.Name, mDmg, dealt)
	} else {
		hm.HP -= oDmg
		t.logf("minions %s and %s collide (%d/%d damage)", m.ID, hm.ID, mDmg, oDmg)
	}

	spots := t.scatterCells(cell, 2)
	if len(spots) != 2 {
		return
	}
	if m.HP > 0 {
		m.Pos = spots[0]
	}
	if hw != nil {
		hw.Pos = spots[1]
	} else if hm.HP > 0 {
		hm.Pos = spots[1]
	}
}

// bfsStep returns the first step of a shortest 8-way path from src toward
// goal, treating occupied cells as walls except the goal itself. Neighbor
// expansion order is fixed, so pathing is deterministic.
func (t *turn) bfsStep(src, goal Position) (Position, bool) {
	type node struct {
		pos   Position
		first Position // first step taken from src
	}
	visited := make(map[Position]bool, BoardSize*BoardSize)
	visited[src] = true
	var queue []node

	for i := 0; i < 8; i++ {
		c := Position{src.X + neighborDX[i], src.Y + neighborDY[i]}
		if !c.InBounds() || visited[c] {
			continue
		}
		visited[c] = true
		if c == goal {
			return c, true
		}
		if t.state.Occupied(c) {
			continue
		}
		queue = append(queue, node{pos: c, first: c})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for i := 0; i < 8; i++ {
			c := Position{cur.pos.X + neighborDX[i], cur.pos.Y + neighborDY[i]}
			if !c.InBounds() || visited[c] {
				continue
			}
			visited[c] = true
			if c == goal {
				return cur.first, true
			}
			if t.state.Occupied(c) {
				continue
			}
			queue = append(queue, node{pos: c, first: cur.first})
		}
	}
	return Position{}, false
}

func (t *turn) cullMinions() {
	live := t.state.Minions[:0]
	for _, m := range t.state.Minions {
		if m.HP > 0 {
			live = append(live, m)
		}
	}
	t.state.Minions = live
}
