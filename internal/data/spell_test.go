package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTable(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spells.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSpellTable(t *testing.T) {
	path := writeTable(t, `
- name: fireball
  mana_cost: 30
  cooldown: 2
  damage: 20
  splash: 4
  range: 5
  targeted: true
- name: shield
  mana_cost: 20
  cooldown: 3
  block: 20
`)
	table, err := LoadSpellTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("count = %d, want 2", table.Count())
	}

	fb := table.Get("fireball")
	if fb == nil || fb.ManaCost != 30 || fb.Range != 5 || !fb.Targeted {
		t.Errorf("fireball loaded wrong: %+v", fb)
	}
	if sh := table.Get("shield"); sh == nil || sh.Block != 20 || sh.Targeted {
		t.Errorf("shield loaded wrong: %+v", table.Get("shield"))
	}
	if table.Get("unknown") != nil {
		t.Error("unknown spell resolved")
	}

	names := table.Names()
	if len(names) != 2 || names[0] != "fireball" || names[1] != "shield" {
		t.Errorf("names out of load order: %v", names)
	}
}

func TestLoadSpellTableRejectsBadInput(t *testing.T) {
	if _, err := LoadSpellTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := LoadSpellTable(writeTable(t, "[]")); err == nil {
		t.Error("empty table accepted")
	}
	if _, err := LoadSpellTable(writeTable(t, "- mana_cost: 5")); err == nil {
		t.Error("unnamed spell accepted")
	}
	if _, err := LoadSpellTable(writeTable(t, "- name: dup\n- name: dup")); err == nil {
		t.Error("duplicate spell accepted")
	}
}

func TestBuiltinSpellTable(t *testing.T) {
	table := BuiltinSpellTable()
	for _, name := range []string{"fireball", "shield", "teleport", "summon", "heal", "blink", "melee_attack"} {
		if table.Get(name) == nil {
			t.Errorf("builtin table missing %q", name)
		}
	}
	if tp := table.Get("teleport"); tp.Range != -1 {
		t.Errorf("teleport range = %d, want unbounded", tp.Range)
	}
	if ml := table.Get("melee_attack"); ml.ManaCost != 0 || ml.Range != 1 {
		t.Errorf("melee_attack = %+v", ml)
	}
}
