package event

import (
	"encoding/json"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func TestBroadcastPreservesOrder(t *testing.T) {
	b := NewBroadcaster(16, zap.NewNop())
	st := b.Subscribe("s-1")

	for i := 0; i < 5; i++ {
		b.Broadcast("s-1", TypeTurnUpdate, map[string]int{"turn": i})
	}

	for i := 0; i < 5; i++ {
		f := <-st.C()
		var payload map[string]int
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			t.Fatal(err)
		}
		if payload["turn"] != i {
			t.Fatalf("frame %d carries turn %d", i, payload["turn"])
		}
	}
}

// A slow subscriber loses its oldest frames, never the newest.
func TestSlowSubscriberDropsOldest(t *testing.T) {
	const queue = 4
	b := NewBroadcaster(queue, zap.NewNop())
	st := b.Subscribe("s-1")

	for i := 0; i < 10; i++ {
		b.Broadcast("s-1", TypeTurnUpdate, map[string]int{"turn": i})
	}
	b.CloseAll("s-1")

	var got []int
	for f := range st.C() {
		var payload map[string]int
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			t.Fatal(err)
		}
		got = append(got, payload["turn"])
	}
	if len(got) != queue {
		t.Fatalf("received %d frames, want %d", len(got), queue)
	}
	want := []int{6, 7, 8, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kept frames %v, want %v", got, want)
			break
		}
	}
}

func TestCloseAllEndsStreams(t *testing.T) {
	b := NewBroadcaster(8, zap.NewNop())
	st := b.Subscribe("s-1")

	b.Broadcast("s-1", TypeGameOver, map[string]string{"winner": "a"})
	b.CloseAll("s-1")

	f, open := <-st.C()
	if !open || f.Event != TypeGameOver {
		t.Fatalf("expected the buffered game_over, got open=%v event=%q", open, f.Event)
	}
	if _, open := <-st.C(); open {
		t.Error("stream not closed after CloseAll")
	}
	if got := b.SubscriberCount("s-1"); got != 0 {
		t.Errorf("subscriber count = %d after CloseAll", got)
	}
}

func TestUnsubscribeRemovesStream(t *testing.T) {
	b := NewBroadcaster(8, zap.NewNop())
	st1 := b.Subscribe("s-1")
	st2 := b.Subscribe("s-1")
	if got := b.SubscriberCount("s-1"); got != 2 {
		t.Fatalf("subscriber count = %d, want 2", got)
	}

	b.Unsubscribe("s-1", st1)
	if got := b.SubscriberCount("s-1"); got != 1 {
		t.Errorf("subscriber count = %d after unsubscribe, want 1", got)
	}

	// The survivor still receives.
	b.Broadcast("s-1", TypeHeartbeat, nil)
	if f := <-st2.C(); f.Event != TypeHeartbeat {
		t.Errorf("surviving stream got %q", f.Event)
	}
}

func TestBroadcastIsolatesSessions(t *testing.T) {
	b := NewBroadcaster(8, zap.NewNop())
	st1 := b.Subscribe("s-1")
	st2 := b.Subscribe("s-2")

	b.Broadcast("s-1", TypeTurnUpdate, nil)
	if f := <-st1.C(); f.Event != TypeTurnUpdate {
		t.Errorf("s-1 got %q", f.Event)
	}
	select {
	case f := <-st2.C():
		t.Errorf("s-2 received s-1's frame %q", f.Event)
	default:
	}
}

func TestEncodeMatchesBroadcastWireFormat(t *testing.T) {
	f, err := Encode(TypeReplayTurn, map[string]int{"turn": 3})
	if err != nil {
		t.Fatal(err)
	}
	if f.Event != TypeReplayTurn {
		t.Errorf("event = %q", f.Event)
	}
	want := fmt.Sprintf(`{"turn":%d}`, 3)
	if string(f.Data) != want {
		t.Errorf("data = %s, want %s", f.Data, want)
	}
}
