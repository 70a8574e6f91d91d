package session

import (
	"context"
	"sync"
	"time"

	"github.com/spellduel/server/internal/engine"
)

// Collector buffers remote action submissions for the turn in flight. One
// collector per session; the match loop is its only Collect caller, HTTP
// handlers race on Submit. Submissions for the wrong turn fail fast; within
// a turn, last write wins until collection.
type Collector struct {
	mu      sync.Mutex
	turn    int // the turn currently accepting submissions
	pending map[string]engine.Action
	notify  chan struct{}
}

func NewCollector() *Collector {
	return &Collector{
		turn:    1,
		pending: make(map[string]engine.Action),
		notify:  make(chan struct{}, 1),
	}
}

// Turn returns the turn currently accepting submissions.
func (c *Collector) Turn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// Submit stores a player's action for the given turn.
func (c *Collector) Submit(player string, turn int, act engine.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if turn != c.turn {
		return &InvalidTurnError{Expected: c.turn, Got: turn}
	}
	c.pending[player] = act.Sanitize()
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// Collect blocks until every expected player has an action or the timeout
// elapses, then returns exactly one action per expected player. Built-in
// seats are filled with a placeholder immediately; their real action is
// fetched synchronously by the match loop. Missing players get the safe
// default; everything returned is re-validated. The turn's slot is purged
// and the collector advances to the next turn.
func (c *Collector) Collect(ctx context.Context, turn int, expected []string, isBuiltin func(string) bool, timeout time.Duration) map[string]engine.Action {
	c.mu.Lock()
	for _, p := range expected {
		if isBuiltin(p) {
			if _, ok := c.pending[p]; !ok {
				c.pending[p] = engine.DefaultAction()
			}
		}
	}
	complete := c.allPresent(expected)
	c.mu.Unlock()

	if !complete {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
	wait:
		for {
			select {
			case <-ctx.Done():
				break wait
			case <-timer.C:
				break wait
			case <-c.notify:
				c.mu.Lock()
				complete = c.allPresent(expected)
				c.mu.Unlock()
				if complete {
					break wait
				}
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]engine.Action, len(expected))
	for _, p := range expected {
		if a, ok := c.pending[p]; ok {
			out[p] = a.Sanitize()
		} else {
			out[p] = engine.DefaultAction()
		}
	}
	c.pending = make(map[string]engine.Action)
	c.turn = turn + 1
	return out
}

func (c *Collector) allPresent(expected []string) bool {
	for _, p := range expected {
		if _, ok := c.pending[p]; !ok {
			return false
		}
	}
	return true
}
