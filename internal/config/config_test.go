package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.BindAddress == "" {
		t.Error("no default bind address")
	}
	if cfg.Game.MaxTurns <= 0 {
		t.Error("no turn cap by default")
	}
	if cfg.Game.TurnTimeout <= 0 {
		t.Error("no default turn timeout")
	}
	if cfg.Events.QueueSize <= 0 {
		t.Error("no default event queue size")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	body := `
[server]
bind_address = "127.0.0.1:9999"

[game]
turn_timeout = "250ms"
max_turns = 42

[database]
enabled = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.BindAddress != "127.0.0.1:9999" {
		t.Errorf("bind_address = %q", cfg.Server.BindAddress)
	}
	if cfg.Game.TurnTimeout.Std() != 250*time.Millisecond {
		t.Errorf("turn_timeout = %s", cfg.Game.TurnTimeout)
	}
	if cfg.Game.MaxTurns != 42 {
		t.Errorf("max_turns = %d", cfg.Game.MaxTurns)
	}
	if cfg.Database.Enabled {
		t.Error("database override lost")
	}
	// Untouched sections keep their defaults.
	if cfg.Lobby.JoinTimeout != Defaults().Lobby.JoinTimeout {
		t.Errorf("lobby defaults clobbered: %s", cfg.Lobby.JoinTimeout)
	}
	if cfg.Server.StartTime == 0 {
		t.Error("start time not stamped")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("missing config accepted")
	}
}
