// Package lobby pairs waiting players into sessions in strict join order.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spellduel/server/internal/bot"
	"github.com/spellduel/server/internal/session"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyInLobby rejects a second join for a player already queued.
	ErrAlreadyInLobby = errors.New("player already in lobby")

	// ErrNotInLobby is returned by Leave for a player that is not queued.
	ErrNotInLobby = errors.New("player not in lobby")

	// ErrJoinTimeout ends a join that found no opponent in time.
	ErrJoinTimeout = errors.New("no opponent found before timeout")

	// ErrLobbyClosed fails joins and waiters during shutdown.
	ErrLobbyClosed = errors.New("lobby is shutting down")
)

// Match is delivered to both waiters of a successful pairing.
type Match struct {
	SessionID    string `json:"session_id"`
	OpponentID   string `json:"opponent_id"`
	OpponentName string `json:"opponent_name"`
}

type entry struct {
	playerID string
	name     string
	joined   time.Time

	// ready closes when the entry is resolved: matched, failed, or drained.
	ready chan struct{}
	match Match
	err   error
}

// Matchmaker is a FIFO queue of players waiting for an opponent. The two
// oldest entries are paired as soon as both exist; the joiner that arrived
// first becomes player_1.
type Matchmaker struct {
	rt      *session.Runtime
	players session.PlayerStore // nil skips directory validation
	timeout time.Duration
	log     *zap.Logger

	mu       sync.Mutex
	queue    []*entry
	byID     map[string]*entry
	matching bool
	closed   bool
}

func NewMatchmaker(rt *session.Runtime, players session.PlayerStore, timeout time.Duration, log *zap.Logger) *Matchmaker {
	return &Matchmaker{
		rt:      rt,
		players: players,
		timeout: timeout,
		log:     log,
		byID:    make(map[string]*entry),
	}
}

// Join enqueues the player and blocks until a match is made, the lobby
// timeout elapses, or ctx is cancelled. On success it returns the id of the
// freshly started session and the opponent's identity.
func (m *Matchmaker) Join(ctx context.Context, playerID, name string) (Match, error) {
	if playerID == "" {
		return Match{}, fmt.Errorf("player_id is required")
	}
	if m.players != nil {
		ok, err := m.players.PlayerExists(ctx, playerID)
		if err != nil {
			return Match{}, fmt.Errorf("player lookup: %w", err)
		}
		if !ok {
			return Match{}, fmt.Errorf("%w: %s", session.ErrPlayerNotFound, playerID)
		}
	}
	if name == "" {
		name = playerID
	}

	e := &entry{
		playerID: playerID,
		name:     name,
		joined:   time.Now(),
		ready:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Match{}, ErrLobbyClosed
	}
	if _, dup := m.byID[playerID]; dup {
		m.mu.Unlock()
		return Match{}, fmt.Errorf("%w: %s", ErrAlreadyInLobby, playerID)
	}
	m.queue = append(m.queue, e)
	m.byID[playerID] = e
	m.mu.Unlock()

	m.tryMatch()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	select {
	case <-e.ready:
		return e.match, e.err
	case <-ctx.Done():
		m.abandon(e)
		return Match{}, ctx.Err()
	case <-timer.C:
		m.abandon(e)
		return Match{}, ErrJoinTimeout
	}
}

// abandon removes a waiter that gave up, unless it was resolved in the
// meantime, in which case the resolution stands.
func (m *Matchmaker) abandon(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-e.ready:
		return
	default:
	}
	m.removeLocked(e.playerID)
}

// Leave withdraws a queued player.
func (m *Matchmaker) Leave(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[playerID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotInLobby, playerID)
	}
	e := m.byID[playerID]
	m.removeLocked(playerID)
	e.err = ErrNotInLobby
	close(e.ready)
	return nil
}

func (m *Matchmaker) removeLocked(playerID string) {
	delete(m.byID, playerID)
	for i, q := range m.queue {
		if q.playerID == playerID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

// Size returns the number of waiting players.
func (m *Matchmaker) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Position returns the player's 1-based place in the queue, or 0 when the
// player is not waiting.
func (m *Matchmaker) Position(playerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, q := range m.queue {
		if q.playerID == playerID {
			return i + 1
		}
	}
	return 0
}

// tryMatch pairs the two oldest waiters. Session creation happens outside
// the lock; a failed creation puts both entries back at the head so join
// order is preserved.
func (m *Matchmaker) tryMatch() {
	for {
		m.mu.Lock()
		if m.closed || m.matching || len(m.queue) < 2 {
			m.mu.Unlock()
			return
		}
		m.matching = true
		first, second := m.queue[0], m.queue[1]
		m.queue = m.queue[2:]
		delete(m.byID, first.playerID)
		delete(m.byID, second.playerID)
		m.mu.Unlock()

		id, err := m.rt.CreateSession(
			bot.Config{Type: bot.TypeRemote, PlayerID: first.playerID, Name: first.name},
			bot.Config{Type: bot.TypeRemote, PlayerID: second.playerID, Name: second.name},
		)

		m.mu.Lock()
		m.matching = false
		if err != nil {
			m.log.Error("lobby match failed",
				zap.String("p1", first.playerID), zap.String("p2", second.playerID),
				zap.Error(err))
			m.queue = append([]*entry{first, second}, m.queue...)
			m.byID[first.playerID] = first
			m.byID[second.playerID] = second
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		first.match = Match{SessionID: id, OpponentID: second.playerID, OpponentName: second.name}
		second.match = Match{SessionID: id, OpponentID: first.playerID, OpponentName: first.name}
		close(first.ready)
		close(second.ready)

		m.log.Info("lobby match",
			zap.String("session", id),
			zap.String("p1", first.playerID), zap.String("p2", second.playerID),
			zap.Duration("p1_wait", time.Since(first.joined)),
			zap.Duration("p2_wait", time.Since(second.joined)))
	}
}

// Shutdown drains the queue, failing every waiter.
func (m *Matchmaker) Shutdown() {
	m.mu.Lock()
	m.closed = true
	drained := m.queue
	m.queue = nil
	m.byID = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range drained {
		e.err = ErrLobbyClosed
		close(e.ready)
	}
}
