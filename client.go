package netcode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"netcode/internal/clocksync"
	"netcode/internal/queue"
	"netcode/internal/telemetry"
	"netcode/internal/transport"
	"netcode/internal/transport/ws"
	"netcode/logging"
)

// clockConsumer is the external collaborator spec §4.4 describes: it turns
// heartbeat round-trips into a target tick. Kept as a narrow interface
// (rather than a concrete *clocksync.Estimator field) so the client depends
// only on the three operations it actually uses, and so tests can
// substitute a deterministic stub instead of real wall-clock timing.
type clockConsumer interface {
	Record(clientSend, serverRecv, clientRecv time.Time)
	EstimateTargetTick(extra time.Duration) Tick
	Analytics() (clocksync.Analytics, bool)
}

// MaxRequestAuthInputs bounds how many missing authoritative ticks the
// client will ask for in a single RequestAuthInput message (spec §5
// Backpressure).
const MaxRequestAuthInputs = 32

const (
	heartbeatIntervalNoAnalytics   = 50 * time.Millisecond
	heartbeatIntervalWithAnalytics = 500 * time.Millisecond
	defaultOutboundQueueCapacity   = 256
)

// Config tunes the engine. Zero values are replaced with defaults by
// Normalized, mirroring the teacher's worldConfig.normalized() /
// defaultWorldConfig() pattern.
type Config struct {
	// TickRate is ticks per second; must match the server.
	TickRate int
	// FixedInputLatency schedules locally generated input this far in the
	// future, giving the network time to deliver it before other clients
	// simulate that tick.
	FixedInputLatency time.Duration
	// MaxPredictionTicks bounds speculative simulation beyond the last
	// authoritative world. Defaults to TickRate/2.
	MaxPredictionTicks int
	// ResyncThresholdTicks disables prediction entirely once the client
	// falls this far behind. Defaults to TickRate*3.
	ResyncThresholdTicks int
	// OutboundQueueCapacity bounds the non-blocking outbound send queue.
	OutboundQueueCapacity int

	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Normalized returns cfg with defaults applied for zero-valued fields.
func (c Config) Normalized() Config {
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.MaxPredictionTicks <= 0 {
		c.MaxPredictionTicks = c.TickRate / 2
	}
	if c.ResyncThresholdTicks <= 0 {
		c.ResyncThresholdTicks = c.TickRate * 3
	}
	if c.OutboundQueueCapacity <= 0 {
		c.OutboundQueueCapacity = defaultOutboundQueueCapacity
	}
	return c
}

// Diagnostics is a point-in-time snapshot of the client's internal state,
// grounded on the teacher's Hub.DiagnosticsSnapshot()/`/diagnostics` HTTP
// endpoint pattern, exposed here as a plain method since this module has
// no server of its own to host one.
type Diagnostics struct {
	SessionID         string
	Connected         bool
	MyPlayerID        PlayerId
	MaxAuthTick       Tick
	OutboundQueueLen  int
	PingSeconds       float64
	ClockErrorSeconds float64
	HasAnalytics      bool
}

// Client is the application-facing handle described in spec §4.9 and §6:
// PlayerId, Sample/SamplePair, SetInput. It is not returned by Connect
// until the handshake has completed, so callers never observe a
// not-yet-connected state through the public API.
type Client[I any, W any] struct {
	sim  Simulation[I, W]
	conn transport.Conn
	cfg  Config

	mu sync.Mutex
	st *state[I, W]

	clock  clockConsumer
	outbox *queue.Ring[[]byte]

	sessionID string
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connectedOnce sync.Once
	connectedCh   chan struct{}

	closeOnce sync.Once
}

// Dial opens a websocket connection to url and wraps it with Connect.
func Dial[I any, W any](ctx context.Context, url string, sim Simulation[I, W], cfg Config) (*Client[I, W], error) {
	conn, err := ws.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("netcode: dial: %w", err)
	}
	client, err := Connect[I, W](ctx, conn, sim, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// Connect performs the C9 startup order over an already-established
// transport: build the shared state record, start the clock consumer,
// spawn the receive and heartbeat loops, then block until the server
// assigns a PlayerId. Grounded on internal/app.Run's "build logging, build
// core, spawn background loops, return handle" sequencing and the
// teacher's historical `go hub.RunSimulation(stop)` / `defer close(stop)`
// shutdown idiom (here: a cancelable context standing in for the stop
// channel).
func Connect[I any, W any](ctx context.Context, conn transport.Conn, sim Simulation[I, W], cfg Config) (*Client[I, W], error) {
	cfg = cfg.Normalized()

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	sessionID := uuid.New().String()

	c := &Client[I, W]{
		sim:         sim,
		conn:        conn,
		cfg:         cfg,
		st:          newState[I, W](sim),
		clock:       clocksync.New(cfg.TickRate, time.Now()),
		outbox:      queue.NewRing[[]byte](cfg.OutboundQueueCapacity, ringMetrics{metrics}),
		sessionID:   sessionID,
		logger:      logger,
		metrics:     metrics,
		publisher:   logging.WithFields(publisher, map[string]any{"sessionId": sessionID}),
		ctx:         loopCtx,
		cancel:      cancel,
		connectedCh: make(chan struct{}),
	}

	c.wg.Add(3)
	go c.runSender()
	go c.runReceiveLoop()
	go c.runHeartbeatLoop()

	select {
	case <-c.connectedCh:
		return c, nil
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

// PlayerId returns the id assigned by the server on connect.
func (c *Client[I, W]) PlayerId() PlayerId {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.myPlayerID
}

// SessionID returns the locally generated identifier stamped onto every
// event this client's background loops log.
func (c *Client[I, W]) SessionID() string {
	return c.sessionID
}

// Diagnostics returns a snapshot of the client's internal state for
// operator/debugging consumption.
func (c *Client[I, W]) Diagnostics() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()

	analytics, hasAnalytics := c.clock.Analytics()
	return Diagnostics{
		SessionID:         c.sessionID,
		Connected:         c.st.haveMyPlayer,
		MyPlayerID:        c.st.myPlayerID,
		MaxAuthTick:       c.st.maxAuthTick,
		OutboundQueueLen:  c.outbox.Len(),
		PingSeconds:       analytics.PingSeconds,
		ClockErrorSeconds: analytics.ClockErrorSeconds,
		HasAnalytics:      hasAnalytics,
	}
}

// Close terminates the background loops and releases the transport. Safe
// to call more than once.
func (c *Client[I, W]) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
		c.wg.Wait()
	})
	return err
}

// enqueueSend stages an outbound payload for the sender goroutine. Per
// spec §5, transport send is best-effort: a full outbound queue drops the
// message silently (recovery happens through heartbeats/re-requests, not
// retransmission).
func (c *Client[I, W]) enqueueSend(payload []byte, err error) {
	if err != nil {
		c.logger.Printf("netcode: encode outbound message: %v", err)
		return
	}
	c.outbox.Push(payload)
}

func (c *Client[I, W]) runSender() {
	defer c.wg.Done()
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, payload := range c.outbox.Drain() {
				if err := c.conn.Send(payload); err != nil {
					if c.ctx.Err() != nil {
						return
					}
				}
			}
		}
	}
}

func (c *Client[I, W]) markConnected() {
	c.connectedOnce.Do(func() {
		close(c.connectedCh)
	})
}

type noopMetrics struct{}

func (noopMetrics) Add(string, uint64)   {}
func (noopMetrics) Store(string, uint64) {}

// ringMetrics adapts telemetry.Metrics to the queue package's narrower
// Metrics interface (identical method set, kept distinct so internal/queue
// never imports internal/telemetry).
type ringMetrics struct {
	m telemetry.Metrics
}

func (r ringMetrics) Add(key string, delta uint64)   { r.m.Add(key, delta) }
func (r ringMetrics) Store(key string, value uint64) { r.m.Store(key, value) }
