package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spellduel/server/internal/engine"
)

func notBuiltin(string) bool { return false }

func TestSubmitRejectsWrongTurn(t *testing.T) {
	c := NewCollector()

	err := c.Submit("p-1", 3, engine.DefaultAction())
	var turnErr *InvalidTurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("wrong-turn submit returned %v", err)
	}
	if turnErr.Expected != 1 || turnErr.Got != 3 {
		t.Errorf("turn error = %+v, want expected=1 got=3", turnErr)
	}
}

func TestCollectTimeoutFillsDefaults(t *testing.T) {
	c := NewCollector()
	mv := engine.Action{Move: &engine.Position{X: 1, Y: 0}}
	if err := c.Submit("p-1", 1, mv); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	out := c.Collect(context.Background(), 1, []string{"p-1", "p-2"}, notBuiltin, 30*time.Millisecond)
	if time.Since(start) > time.Second {
		t.Error("collect did not respect the timeout")
	}

	if got := out["p-1"].Move; got == nil || *got != (engine.Position{X: 1, Y: 0}) {
		t.Errorf("submitted action lost: %+v", out["p-1"])
	}
	if got := out["p-2"].Move; got == nil || *got != (engine.Position{}) {
		t.Errorf("missing player not defaulted: %+v", out["p-2"])
	}
}

func TestCollectUnblocksWhenAllArrive(t *testing.T) {
	c := NewCollector()

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Submit("p-1", 1, engine.DefaultAction())
		c.Submit("p-2", 1, engine.DefaultAction())
	}()

	start := time.Now()
	out := c.Collect(context.Background(), 1, []string{"p-1", "p-2"}, notBuiltin, 5*time.Second)
	if time.Since(start) > time.Second {
		t.Error("collect waited for the full timeout despite both actions present")
	}
	if len(out) != 2 {
		t.Errorf("collected %d actions, want 2", len(out))
	}
}

func TestCollectAdvancesTurnAndPurges(t *testing.T) {
	c := NewCollector()
	c.Submit("p-1", 1, engine.DefaultAction())
	c.Collect(context.Background(), 1, []string{"p-1"}, notBuiltin, time.Millisecond)

	if got := c.Turn(); got != 2 {
		t.Errorf("turn after collect = %d, want 2", got)
	}
	// A late duplicate for the collected turn must fail.
	if err := c.Submit("p-1", 1, engine.DefaultAction()); err == nil {
		t.Error("stale submit accepted after collection")
	}
}

func TestCollectBuiltinSeatsDoNotWait(t *testing.T) {
	c := NewCollector()
	isBuiltin := func(string) bool { return true }

	start := time.Now()
	out := c.Collect(context.Background(), 1, []string{"aggressive", "idle"}, isBuiltin, 5*time.Second)
	if time.Since(start) > time.Second {
		t.Error("collect blocked on builtin seats")
	}
	if len(out) != 2 {
		t.Errorf("collected %d actions, want 2", len(out))
	}
}

func TestCollectHonorsContextCancel(t *testing.T) {
	c := NewCollector()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	c.Collect(ctx, 1, []string{"p-1"}, notBuiltin, 5*time.Second)
	if time.Since(start) > time.Second {
		t.Error("collect outlived its context")
	}
}
