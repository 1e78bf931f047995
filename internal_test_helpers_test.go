package netcode

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"netcode/internal/clocksync"
	"netcode/internal/queue"
	"netcode/logging"
)

// testSim is a minimal deterministic Simulation used across this package's
// tests. Its World is a human-readable log of every tick's resolved
// inputs, so tests can assert on exact simulated history instead of an
// opaque checksum.
type testSim struct{}

func (testSim) InitialInput() string { return "_" }
func (testSim) InitialWorld() string { return "" }

func (testSim) Step(tick Tick, inputs map[PlayerId]InputPair[string], prev string) string {
	playerIDs := make([]PlayerId, 0, len(inputs))
	for p := range inputs {
		playerIDs = append(playerIDs, p)
	}
	sort.Slice(playerIDs, func(i, j int) bool { return playerIDs[i] < playerIDs[j] })

	line := fmt.Sprintf("t%d:", tick)
	for i, p := range playerIDs {
		if i > 0 {
			line += ","
		}
		line += fmt.Sprintf("%d=%s", p, inputs[p].Curr)
	}
	return prev + line + ";"
}

func (testSim) EncodeInput(input string) ([]byte, error) { return []byte(input), nil }
func (testSim) DecodeInput(data []byte) (string, error)  { return string(data), nil }

// fakeClock is a deterministic, directly-settable stand-in for
// *clocksync.Estimator, used to drive sample()/SetInput() in tests without
// depending on wall-clock timing. It satisfies clockConsumer.
type fakeClock struct {
	mu     sync.Mutex
	target Tick
	extra  map[time.Duration]Tick
}

func newFakeClock(target Tick) *fakeClock {
	return &fakeClock{target: target}
}

func (f *fakeClock) setTarget(t Tick) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.target = t
}

// setTargetForExtra makes EstimateTargetTick return a distinct value for a
// specific non-zero extra latency, modeling fixedInputLatency scheduling
// input ahead of the base target.
func (f *fakeClock) setTargetForExtra(extra time.Duration, t Tick) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.extra == nil {
		f.extra = make(map[time.Duration]Tick)
	}
	f.extra[extra] = t
}

func (f *fakeClock) Record(time.Time, time.Time, time.Time) {}

func (f *fakeClock) EstimateTargetTick(extra time.Duration) Tick {
	f.mu.Lock()
	defer f.mu.Unlock()
	if extra != 0 {
		if t, ok := f.extra[extra]; ok {
			return t
		}
	}
	return f.target
}

func (f *fakeClock) Analytics() (clocksync.Analytics, bool) { return clocksync.Analytics{}, false }

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// newTestClient builds a Client with all background loops and transport
// stubbed out, for white-box exercise of the receive/predict/submit logic
// directly. Grounded on the teacher's determinism_harness_test.go pattern
// of constructing engine state directly rather than through the network.
func newTestClient(cfg Config, target Tick) (*Client[string, string], *fakeClock) {
	cfg = cfg.Normalized()
	clock := newFakeClock(target)
	c := &Client[string, string]{
		sim:         testSim{},
		cfg:         cfg,
		st:          newState[string, string](testSim{}),
		clock:       clock,
		outbox:      queue.NewRing[[]byte](cfg.OutboundQueueCapacity, nil),
		logger:      noopLogger{},
		metrics:     noopMetrics{},
		publisher:   logging.NopPublisher(),
		sessionID:   "test-session",
		connectedCh: make(chan struct{}),
	}
	return c, clock
}
