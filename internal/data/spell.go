package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpellInfo holds a single spell template.
type SpellInfo struct {
	Name     string
	ManaCost int
	Cooldown int
	Damage   int // direct hit damage (0 for non-damaging)
	Splash   int // splash damage to cells adjacent to the target
	Range    int // Chebyshev range (0 = self, -1 = anywhere on the board)
	Block    int // damage absorbed by shield
	Heal     int // hp restored to caster
	Targeted bool
}

// SpellTable holds all spells indexed by name.
type SpellTable struct {
	spells map[string]*SpellInfo
	order  []string
}

// Get returns a spell by name, or nil if unknown.
func (t *SpellTable) Get(name string) *SpellInfo {
	return t.spells[name]
}

// Count returns total loaded spells.
func (t *SpellTable) Count() int {
	return len(t.spells)
}

// Names returns spell names in load order.
func (t *SpellTable) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// --- YAML loading ---

type spellEntry struct {
	Name     string `yaml:"name"`
	ManaCost int    `yaml:"mana_cost"`
	Cooldown int    `yaml:"cooldown"`
	Damage   int    `yaml:"damage"`
	Splash   int    `yaml:"splash"`
	Range    int    `yaml:"range"`
	Block    int    `yaml:"block"`
	Heal     int    `yaml:"heal"`
	Targeted bool   `yaml:"targeted"`
}

// LoadSpellTable parses the spell list YAML.
func LoadSpellTable(path string) (*SpellTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []spellEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("spell table %s is empty", path)
	}

	t := &SpellTable{spells: make(map[string]*SpellInfo, len(entries))}
	for i := range entries {
		e := entries[i]
		if e.Name == "" {
			return nil, fmt.Errorf("spell entry %d has no name", i)
		}
		if _, dup := t.spells[e.Name]; dup {
			return nil, fmt.Errorf("duplicate spell %q", e.Name)
		}
		t.spells[e.Name] = &SpellInfo{
			Name:     e.Name,
			ManaCost: e.ManaCost,
			Cooldown: e.Cooldown,
			Damage:   e.Damage,
			Splash:   e.Splash,
			Range:    e.Range,
			Block:    e.Block,
			Heal:     e.Heal,
			Targeted: e.Targeted,
		}
		t.order = append(t.order, e.Name)
	}
	return t, nil
}

// BuiltinSpellTable returns the default spell set. Used when no YAML path is
// configured, and by tests.
func BuiltinSpellTable() *SpellTable {
	defs := []*SpellInfo{
		{Name: "fireball", ManaCost: 30, Cooldown: 2, Damage: 20, Splash: 4, Range: 5, Targeted: true},
		{Name: "shield", ManaCost: 20, Cooldown: 3, Block: 20},
		{Name: "teleport", ManaCost: 20, Cooldown: 4, Range: -1, Targeted: true},
		{Name: "summon", ManaCost: 50, Cooldown: 5},
		{Name: "heal", ManaCost: 25, Cooldown: 3, Heal: 20},
		{Name: "blink", ManaCost: 10, Cooldown: 2, Range: 2, Targeted: true},
		{Name: "melee_attack", ManaCost: 0, Cooldown: 1, Damage: 10, Range: 1, Targeted: true},
	}
	t := &SpellTable{spells: make(map[string]*SpellInfo, len(defs))}
	for _, s := range defs {
		t.spells[s.Name] = s
		t.order = append(t.order, s.Name)
	}
	return t
}
