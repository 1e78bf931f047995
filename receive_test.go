package netcode

import (
	"context"
	"encoding/json"
	"testing"

	"netcode/internal/proto"
	"netcode/logging"
)

func tickInputs(player PlayerId, input string) proto.TickInputs {
	return proto.TickInputs{{Player: player, Input: []byte(input)}}
}

func TestHandleConnectedSetsPlayerIdOnceAndMarksConnected(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)

	c.handleConnected(7)
	if !c.st.haveMyPlayer || c.st.myPlayerID != 7 {
		t.Fatalf("expected player id 7 to be recorded, got %d (have=%v)", c.st.myPlayerID, c.st.haveMyPlayer)
	}
	select {
	case <-c.connectedCh:
	default:
		t.Fatalf("expected connectedCh to be closed after the first Connected message")
	}

	// A second Connected message must not overwrite the recorded id.
	c.handleConnected(99)
	if c.st.myPlayerID != 7 {
		t.Fatalf("expected player id to stay 7, got %d", c.st.myPlayerID)
	}
}

func TestHandleAuthInputAdvancesMaxAuthTickAndSendsAck(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)

	msg := proto.Inbound{
		Kind:     proto.TypeAuthInput,
		HeadTick: 1,
		AuthTicks: []proto.TickInputs{
			tickInputs(1, "up"),
			tickInputs(1, "down"),
		},
	}
	c.handleAuthInput(msg)

	if c.st.maxAuthTick != 2 {
		t.Fatalf("expected MaxAuthTick to advance to 2, got %d", c.st.maxAuthTick)
	}
	if got, ok := c.st.inputs.LookupAuth(1); !ok || got[1] != "up" {
		t.Fatalf("expected auth at tick 1 to be {1:up}, got %v ok=%v", got, ok)
	}
	if got, ok := c.st.inputs.LookupAuth(2); !ok || got[1] != "down" {
		t.Fatalf("expected auth at tick 2 to be {1:down}, got %v ok=%v", got, ok)
	}

	sent := c.outbox.Drain()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one outbound Ack, got %d", len(sent))
	}
}

func TestHandleAuthInputDuplicateIsLoggedAndDropped(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)

	first := proto.Inbound{Kind: proto.TypeAuthInput, HeadTick: 1, AuthTicks: []proto.TickInputs{tickInputs(1, "up")}}
	c.handleAuthInput(first)
	c.outbox.Drain()

	// Re-deliver the same tick; it must not overwrite the stored value or
	// advance MaxAuthTick a second time.
	dup := proto.Inbound{Kind: proto.TypeAuthInput, HeadTick: 1, AuthTicks: []proto.TickInputs{tickInputs(1, "down")}}
	c.handleAuthInput(dup)

	got, ok := c.st.inputs.LookupAuth(1)
	if !ok || got[1] != "up" {
		t.Fatalf("expected the original auth value to survive a duplicate delivery, got %v ok=%v", got, ok)
	}
	if c.st.maxAuthTick != 1 {
		t.Fatalf("expected MaxAuthTick to stay at 1, got %d", c.st.maxAuthTick)
	}
}

func TestHandleAuthInputRequestsMissingTicksWhenGapped(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)

	// Deliver tick 1, then a disjoint AuthInput batch starting at tick 5,
	// leaving 2,3,4 missing.
	c.handleAuthInput(proto.Inbound{Kind: proto.TypeAuthInput, HeadTick: 1, AuthTicks: []proto.TickInputs{tickInputs(1, "a")}})
	c.outbox.Drain()

	c.handleAuthInput(proto.Inbound{Kind: proto.TypeAuthInput, HeadTick: 5, AuthTicks: []proto.TickInputs{tickInputs(1, "e")}})

	sent := c.outbox.Drain()
	if len(sent) == 0 {
		t.Fatalf("expected a RequestAuthInput to be enqueued for the gap")
	}
}

func TestHandleAuthInputBoundsGapRequestSize(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)

	// Leave a gap wider than MaxRequestAuthInputs between tick 0 and a
	// lone authoritative tick far ahead.
	far := Tick(MaxRequestAuthInputs*2 + 5)
	c.st.inputs.InsertAuth(far, map[PlayerId]string{1: "z"})

	c.handleAuthInput(proto.Inbound{Kind: proto.TypeAuthInput, HeadTick: far, AuthTicks: []proto.TickInputs{tickInputs(1, "z")}})

	// The insert above pre-populated tick `far`, so this delivery is a
	// duplicate and reports the gap below it via the MaxAuthKey scan.
	c.mu.Lock()
	maxKey, _ := c.st.inputs.MaxAuthKey()
	c.mu.Unlock()
	if maxKey != far {
		t.Fatalf("expected MaxAuthKey %d, got %d", far, maxKey)
	}

	sent := c.outbox.Drain()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one outbound RequestAuthInput, got %d", len(sent))
	}
	var req struct {
		Type  string  `json:"type"`
		Ticks []int64 `json:"ticks"`
	}
	if err := json.Unmarshal(sent[0], &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Type != proto.TypeRequestAuthInput || len(req.Ticks) != MaxRequestAuthInputs {
		t.Fatalf("expected a RequestAuthInput of %d ticks, got type %q with %d ticks", MaxRequestAuthInputs, req.Type, len(req.Ticks))
	}
}

func TestHandleAuthInputMergesHintsPreservingSelf(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)
	c.st.myPlayerID, c.st.haveMyPlayer = 1, true

	c.st.inputs.InsertHintOne(2, 1, "my-own-guess")

	msg := proto.Inbound{
		Kind:     proto.TypeAuthInput,
		HeadTick: 1,
		AuthTicks: []proto.TickInputs{
			tickInputs(9, "only-auth-player"),
		},
		HintTicks: []proto.TickInputs{
			tickInputs(1, "server-guess-for-1"),
		},
	}
	c.handleAuthInput(msg)

	hint, ok := c.st.inputs.LookupHint(2)
	if !ok || hint[1] != "my-own-guess" {
		t.Fatalf("expected the local player's own hint to survive the merge, got %v ok=%v", hint, ok)
	}
}

func TestHandleHintInputStoresDecodedInput(t *testing.T) {
	c, _ := newTestClient(Config{}, 0)

	c.handleHintInput(proto.Inbound{Kind: proto.TypeHintInput, Tick: 3, Player: 2, Input: []byte("left")})

	hint, ok := c.st.inputs.LookupHint(3)
	if !ok || hint[2] != "left" {
		t.Fatalf("expected hint {2:left} at tick 3, got %v ok=%v", hint, ok)
	}
}

func TestHandleAuthInputEmitsRollbackWhenCorrectingPredictedTick(t *testing.T) {
	c, clock := newTestClient(Config{TickRate: 10, MaxPredictionTicks: 5}, 1)
	c.st.myPlayerID, c.st.haveMyPlayer = 1, true

	var gotRollback bool
	c.publisher = logging.PublisherFunc(func(_ context.Context, ev logging.Event) {
		if ev.Type == "network.rollback_applied" {
			gotRollback = true
		}
	})

	c.st.inputs.InsertHintOne(1, 2, "guess")
	c.SamplePair() // predicts through tick 1 speculatively

	clock.setTarget(1)
	c.handleAuthInput(proto.Inbound{Kind: proto.TypeAuthInput, HeadTick: 1, AuthTicks: []proto.TickInputs{tickInputs(2, "actual")}})
	c.outbox.Drain()

	got, ok := c.st.inputs.LookupAuth(1)
	if !ok || got[2] != "actual" {
		t.Fatalf("expected corrected auth value at tick 1, got %v ok=%v", got, ok)
	}
	if !gotRollback {
		t.Fatalf("expected a RollbackApplied event for the corrected tick")
	}
}
