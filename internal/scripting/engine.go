// Package scripting hosts Lua-scripted bot brains. Go owns the rules and the
// match loop; Lua owns the decision logic, mirroring the split the duel was
// designed around: a script receives a flattened view of the board and
// returns the action to take.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Calls are serialized with a mutex:
// unlike a single game loop, many session loops share this VM.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all bot scripts from
// <scriptsDir>/bots. A missing directory is not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(filepath.Join(scriptsDir, "bots")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load bot scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// HasBot reports whether a decide_<name> function is defined.
func (e *Engine) HasBot(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.GetGlobal("decide_"+name) != lua.LNil
}

// EntityView is the flattened per-entity state handed to Lua.
type EntityView struct {
	X, Y      int
	HP        int
	Mana      int
	Shield    bool
	Cooldowns map[string]int
}

// MinionView describes a live minion.
type MinionView struct {
	X, Y  int
	HP    int
	Mine  bool
	Ready bool
}

// ArtifactView describes a pickup on the board.
type ArtifactView struct {
	X, Y int
	Type string
}

// BotContext is the full decision input for one turn.
type BotContext struct {
	Turn      int
	Self      EntityView
	Enemy     EntityView
	Minions   []MinionView
	Artifacts []ArtifactView
}

// BotDecision is what the script returns. A nil move or spell means none.
type BotDecision struct {
	MoveX, MoveY int
	HasMove      bool
	Spell        string
	TargetX      int
	TargetY      int
	HasTarget    bool
}

// DecideBot calls the Lua decide_<name> function. On any script failure the
// bot stands still, so a broken script cannot stall a session.
func (e *Engine) DecideBot(name string, ctx BotContext) BotDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("decide_" + name)
	if fn == lua.LNil {
		e.log.Error("lua bot function not found", zap.String("bot", name))
		return BotDecision{HasMove: true}
	}

	t := e.vm.NewTable()
	t.RawSetString("turn", lua.LNumber(ctx.Turn))
	t.RawSetString("self", e.entityTable(ctx.Self))
	t.RawSetString("enemy", e.entityTable(ctx.Enemy))

	minions := e.vm.NewTable()
	for _, m := range ctx.Minions {
		mt := e.vm.NewTable()
		mt.RawSetString("x", lua.LNumber(m.X))
		mt.RawSetString("y", lua.LNumber(m.Y))
		mt.RawSetString("hp", lua.LNumber(m.HP))
		mt.RawSetString("mine", lua.LBool(m.Mine))
		mt.RawSetString("ready", lua.LBool(m.Ready))
		minions.Append(mt)
	}
	t.RawSetString("minions", minions)

	artifacts := e.vm.NewTable()
	for _, a := range ctx.Artifacts {
		at := e.vm.NewTable()
		at.RawSetString("x", lua.LNumber(a.X))
		at.RawSetString("y", lua.LNumber(a.Y))
		at.RawSetString("type", lua.LString(a.Type))
		artifacts.Append(at)
	}
	t.RawSetString("artifacts", artifacts)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua bot error", zap.String("bot", name), zap.Error(err))
		return BotDecision{HasMove: true}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua bot returned non-table", zap.String("bot", name))
		return BotDecision{HasMove: true}
	}

	var d BotDecision
	if mv, ok := rt.RawGetString("move").(*lua.LTable); ok {
		d.HasMove = true
		d.MoveX = int(lua.LVAsNumber(mv.RawGetInt(1)))
		d.MoveY = int(lua.LVAsNumber(mv.RawGetInt(2)))
	}
	if sp, ok := rt.RawGetString("spell").(*lua.LTable); ok {
		d.Spell = lua.LVAsString(sp.RawGetString("name"))
		if tg, ok := sp.RawGetString("target").(*lua.LTable); ok {
			d.HasTarget = true
			d.TargetX = int(lua.LVAsNumber(tg.RawGetInt(1)))
			d.TargetY = int(lua.LVAsNumber(tg.RawGetInt(2)))
		}
	}
	return d
}

func (e *Engine) entityTable(v EntityView) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("hp", lua.LNumber(v.HP))
	t.RawSetString("mana", lua.LNumber(v.Mana))
	t.RawSetString("shield", lua.LBool(v.Shield))
	cds := e.vm.NewTable()
	for name, cd := range v.Cooldowns {
		cds.RawSetString(name, lua.LNumber(cd))
	}
	t.RawSetString("cooldowns", cds)
	return t
}
