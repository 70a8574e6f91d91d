package bot

import (
	"fmt"
	"math/rand"

	"github.com/spellduel/server/internal/data"
	"github.com/spellduel/server/internal/engine"
	"github.com/spellduel/server/internal/scripting"
)

// spells is consulted by built-ins for costs and cooldowns. Built-ins assume
// the default table; sessions with exotic YAML tables should script bots
// instead.
var spells = data.BuiltinSpellTable()

// Builtins lists the registered built-in strategy names.
func Builtins() []string {
	return []string{"aggressive", "defensive", "random", "idle"}
}

func builtinStrategy(name string, seed int64) (Strategy, error) {
	switch name {
	case "aggressive":
		return strategyFunc(aggressive), nil
	case "defensive":
		return strategyFunc(defensive), nil
	case "random":
		rng := rand.New(rand.NewSource(seed))
		return strategyFunc(func(s *engine.State, self int) engine.Action {
			return randomAction(rng, s, self)
		}), nil
	case "idle":
		return strategyFunc(func(*engine.State, int) engine.Action {
			return engine.DefaultAction()
		}), nil
	default:
		return nil, fmt.Errorf("unknown builtin strategy %q", name)
	}
}

type strategyFunc func(*engine.State, int) engine.Action

func (f strategyFunc) Decide(s *engine.State, self int) engine.Action {
	return f(s, self)
}

func canCast(w *engine.Wizard, spell string) bool {
	sp := spells.Get(spell)
	return sp != nil && w.Mana >= sp.ManaCost && w.Cooldowns[spell] == 0
}

// stepToward returns the unit delta that closes the gap.
func stepToward(from, to engine.Position) *engine.Position {
	d := engine.Position{X: sign(to.X - from.X), Y: sign(to.Y - from.Y)}
	return &d
}

// stepAway retreats, clamped so the move stays on the board.
func stepAway(from, to engine.Position) *engine.Position {
	d := engine.Position{X: -sign(to.X - from.X), Y: -sign(to.Y - from.Y)}
	if n := (engine.Position{X: from.X + d.X, Y: from.Y + d.Y}); !n.InBounds() {
		d = engine.Position{}
	}
	return &d
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// aggressive closes distance and burns whatever is off cooldown.
func aggressive(s *engine.State, self int) engine.Action {
	me := s.Wizards[self]
	foe := s.Wizards[1-self]
	dist := me.Pos.Chebyshev(foe.Pos)

	if me.Pos.Manhattan(foe.Pos) == 1 && canCast(me, "melee_attack") {
		tgt := foe.Pos
		return engine.Action{Spell: &engine.SpellCast{Name: "melee_attack", Target: &tgt}}
	}
	if dist <= spells.Get("fireball").Range && canCast(me, "fireball") {
		tgt := foe.Pos
		return engine.Action{
			Move:  stepToward(me.Pos, foe.Pos),
			Spell: &engine.SpellCast{Name: "fireball", Target: &tgt},
		}
	}
	if s.MinionOf(me.Name) == nil && canCast(me, "summon") {
		return engine.Action{Move: stepToward(me.Pos, foe.Pos), Spell: &engine.SpellCast{Name: "summon"}}
	}
	return engine.Action{Move: stepToward(me.Pos, foe.Pos)}
}

// defensive keeps range, shields under pressure and heals when hurt.
func defensive(s *engine.State, self int) engine.Action {
	me := s.Wizards[self]
	foe := s.Wizards[1-self]
	dist := me.Pos.Chebyshev(foe.Pos)

	if me.HP <= 60 && canCast(me, "heal") {
		return engine.Action{Move: stepAway(me.Pos, foe.Pos), Spell: &engine.SpellCast{Name: "heal"}}
	}
	if dist <= spells.Get("fireball").Range+1 && !me.ShieldActive && canCast(me, "shield") {
		return engine.Action{Move: stepAway(me.Pos, foe.Pos), Spell: &engine.SpellCast{Name: "shield"}}
	}
	if dist <= spells.Get("fireball").Range && canCast(me, "fireball") {
		tgt := foe.Pos
		return engine.Action{Spell: &engine.SpellCast{Name: "fireball", Target: &tgt}}
	}
	return engine.Action{Move: stepAway(me.Pos, foe.Pos)}
}

func randomAction(rng *rand.Rand, s *engine.State, self int) engine.Action {
	me := s.Wizards[self]
	foe := s.Wizards[1-self]
	mv := &engine.Position{X: rng.Intn(3) - 1, Y: rng.Intn(3) - 1}
	act := engine.Action{Move: mv}

	if rng.Intn(2) == 0 {
		candidates := []string{"fireball", "melee_attack", "shield", "heal", "summon"}
		name := candidates[rng.Intn(len(candidates))]
		if canCast(me, name) {
			cast := &engine.SpellCast{Name: name}
			if spells.Get(name).Targeted {
				tgt := foe.Pos
				cast.Target = &tgt
			}
			act.Spell = cast
		}
	}
	return act
}

// luaStrategy defers the decision to a scripted bot.
type luaStrategy struct {
	engine *scripting.Engine
	bot    string
}

func (l *luaStrategy) Decide(s *engine.State, self int) engine.Action {
	d := l.engine.DecideBot(l.bot, buildContext(s, self))

	var act engine.Action
	if d.HasMove {
		act.Move = &engine.Position{X: d.MoveX, Y: d.MoveY}
	}
	if d.Spell != "" {
		cast := &engine.SpellCast{Name: d.Spell}
		if d.HasTarget {
			cast.Target = &engine.Position{X: d.TargetX, Y: d.TargetY}
		}
		act.Spell = cast
	}
	return act.Sanitize()
}

func buildContext(s *engine.State, self int) scripting.BotContext {
	me := s.Wizards[self]
	foe := s.Wizards[1-self]

	ctx := scripting.BotContext{
		Turn:  s.Turn,
		Self:  entityView(me),
		Enemy: entityView(foe),
	}
	for _, m := range s.Minions {
		if m.HP <= 0 {
			continue
		}
		ctx.Minions = append(ctx.Minions, scripting.MinionView{
			X: m.Pos.X, Y: m.Pos.Y, HP: m.HP,
			Mine: m.Owner == me.Name, Ready: m.Ready,
		})
	}
	for _, a := range s.Artifacts {
		ctx.Artifacts = append(ctx.Artifacts, scripting.ArtifactView{
			X: a.Pos.X, Y: a.Pos.Y, Type: string(a.Type),
		})
	}
	return ctx
}

func entityView(w *engine.Wizard) scripting.EntityView {
	cds := make(map[string]int, len(w.Cooldowns))
	for k, v := range w.Cooldowns {
		if v > 0 {
			cds[k] = v
		}
	}
	return scripting.EntityView{
		X: w.Pos.X, Y: w.Pos.Y,
		HP: w.HP, Mana: w.Mana,
		Shield:    w.ShieldActive,
		Cooldowns: cds,
	}
}
