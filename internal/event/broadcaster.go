// Package event fans per-session game events out to subscriber streams.
// The broadcaster owns every stream; sessions refer to it by id only, which
// keeps teardown a one-way walk (runtime → broadcaster → streams).
package event

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event names carried on the wire.
const (
	TypeHeartbeat    = "heartbeat"
	TypeSessionStart = "session_start"
	TypeTurnUpdate   = "turn_update"
	TypeReplayTurn   = "replay_turn"
	TypeGameOver     = "game_over"
	TypeError        = "error"
)

// Frame is one serialized event as delivered to a subscriber.
type Frame struct {
	Event string
	Data  []byte
}

// Encode serializes a payload into a frame outside of any stream. Replay
// streaming uses it to emit recorded turns in the live wire format.
func Encode(eventName string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: eventName, Data: data}, nil
}

// Stream is a single subscriber's bounded queue. The channel is closed as
// the end-of-stream sentinel; a slow consumer loses its oldest frames rather
// than stalling the session loop.
type Stream struct {
	ch     chan Frame
	mu     sync.Mutex
	closed bool
}

// C returns the receive side of the stream.
func (s *Stream) C() <-chan Frame { return s.ch }

// push enqueues a frame, evicting the oldest buffered frame when full.
// Returns false if the stream is already closed.
func (s *Stream) push(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- f:
			return true
		default:
		}
		select {
		case <-s.ch: // drop-oldest
		default:
		}
	}
}

func (s *Stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Broadcaster maps session ids to their subscriber streams.
type Broadcaster struct {
	mu        sync.Mutex
	sessions  map[string][]*Stream
	queueSize int
	log       *zap.Logger
}

func NewBroadcaster(queueSize int, log *zap.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Broadcaster{
		sessions:  make(map[string][]*Stream),
		queueSize: queueSize,
		log:       log,
	}
}

// Subscribe appends a new stream to the session's subscriber list. Always
// succeeds; subscribing to an unknown session yields a stream that only ever
// closes (the caller learns the session is gone from the registry, not here).
func (b *Broadcaster) Subscribe(sessionID string) *Stream {
	st := &Stream{ch: make(chan Frame, b.queueSize)}
	b.mu.Lock()
	b.sessions[sessionID] = append(b.sessions[sessionID], st)
	b.mu.Unlock()
	return st
}

// Unsubscribe removes and closes the stream.
func (b *Broadcaster) Unsubscribe(sessionID string, st *Stream) {
	b.mu.Lock()
	subs := b.sessions[sessionID]
	for i, s := range subs {
		if s == st {
			b.sessions[sessionID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.sessions[sessionID]) == 0 {
		delete(b.sessions, sessionID)
	}
	b.mu.Unlock()
	st.close()
}

// SubscriberCount reports the session's live stream count.
func (b *Broadcaster) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions[sessionID])
}

// Broadcast serializes the payload once and pushes it to every subscriber.
// Within one stream, frames arrive in broadcast order.
func (b *Broadcaster) Broadcast(sessionID, eventName string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("marshal event", zap.String("session", sessionID),
			zap.String("event", eventName), zap.Error(err))
		return
	}
	f := Frame{Event: eventName, Data: data}

	b.mu.Lock()
	subs := make([]*Stream, len(b.sessions[sessionID]))
	copy(subs, b.sessions[sessionID])
	b.mu.Unlock()

	for _, st := range subs {
		st.push(f)
	}
}

// Heartbeat emits a keep-alive frame so idle transports stay open.
func (b *Broadcaster) Heartbeat(sessionID string) {
	b.Broadcast(sessionID, TypeHeartbeat, map[string]string{"session_id": sessionID})
}

// CloseAll closes every stream of the session and forgets the session.
func (b *Broadcaster) CloseAll(sessionID string) {
	b.mu.Lock()
	subs := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	b.mu.Unlock()

	for _, st := range subs {
		st.close()
	}
}

// Shutdown closes every stream of every session.
func (b *Broadcaster) Shutdown() {
	b.mu.Lock()
	all := b.sessions
	b.sessions = make(map[string][]*Stream)
	b.mu.Unlock()

	for _, subs := range all {
		for _, st := range subs {
			st.close()
		}
	}
}
