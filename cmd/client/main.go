// Command client is a minimal demo wiring for the rollback engine: it
// dials a server over a websocket, submits directional input read from
// stdin, and periodically prints the predicted world and diagnostics
// snapshot. It exists to exercise Dial/SetInput/Sample/Diagnostics end to
// end, the way the teacher's cmd/server main.go wired Hub+HTTP together.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"netcode"
	"netcode/internal/app"
	"netcode/internal/telemetry"
	"netcode/logging"
)

// DemoInput is the opaque per-tick input this demo submits: a movement
// delta, encoded as JSON on the wire.
type DemoInput struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// DemoWorld is the opaque simulated state this demo predicts: each
// player's accumulated position.
type DemoWorld map[netcode.PlayerId]Position

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type demoSim struct{}

func (demoSim) InitialInput() DemoInput { return DemoInput{} }
func (demoSim) InitialWorld() DemoWorld { return DemoWorld{} }

func (demoSim) Step(_ netcode.Tick, inputs map[netcode.PlayerId]netcode.InputPair[DemoInput], prev DemoWorld) DemoWorld {
	next := make(DemoWorld, len(prev))
	for p, pos := range prev {
		next[p] = pos
	}
	players := make([]netcode.PlayerId, 0, len(inputs))
	for p := range inputs {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })
	for _, p := range players {
		pos := next[p]
		pos.X += inputs[p].Curr.DX
		pos.Y += inputs[p].Curr.DY
		next[p] = pos
	}
	return next
}

func (demoSim) EncodeInput(input DemoInput) ([]byte, error) { return json.Marshal(input) }
func (demoSim) DecodeInput(data []byte) (DemoInput, error) {
	var in DemoInput
	err := json.Unmarshal(data, &in)
	return in, err
}

func main() {
	var (
		url         string
		tickRate    int
		sampleEvery time.Duration
	)
	flag.StringVar(&url, "url", "", "websocket URL of the server to connect to")
	flag.IntVar(&tickRate, "tick-rate", 20, "ticks per second, must match the server")
	flag.DurationVar(&sampleEvery, "sample-every", 200*time.Millisecond, "how often to print the predicted world")
	flag.Parse()

	if url == "" {
		fmt.Fprintln(os.Stderr, "--url is required")
		os.Exit(1)
	}

	logger := telemetry.WrapLogger(log.Default())

	logCfg := logging.DefaultConfig()
	if addr, ok := app.TelemetryAddr(); ok {
		logger.Printf("telemetry addr configured: %s (not yet wired to a remote sink)", addr)
	}

	router, err := app.BuildRouter(app.Config{Logger: logger, Logging: logCfg})
	if err != nil {
		log.Fatalf("netcode: build logging router: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer app.CloseRouter(context.Background(), router, logger)

	metrics := &logging.Metrics{}
	client, err := netcode.Dial[DemoInput, DemoWorld](ctx, url, demoSim{}, netcode.Config{
		TickRate:  tickRate,
		Logger:    logger,
		Publisher: router,
		Metrics:   telemetry.WrapMetrics(metrics),
	})
	if err != nil {
		log.Fatalf("netcode: dial %s: %v", url, err)
	}
	defer client.Close()

	logger.Printf("connected as player %d (session %s)", client.PlayerId(), client.SessionID())

	go readInputLoop(ctx, client)

	ticker := time.NewTicker(sampleEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			world := client.Sample()
			diag := client.Diagnostics()
			logger.Printf("world=%+v maxAuthTick=%d queueLen=%d ping=%.3fs metrics=%v", world, diag.MaxAuthTick, diag.OutboundQueueLen, diag.PingSeconds, metrics.Snapshot())
		}
	}
}

// readInputLoop reads "dx dy" pairs from stdin and submits them, letting a
// human drive the demo from a terminal.
func readInputLoop(ctx context.Context, client *netcode.Client[DemoInput, DemoWorld]) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var dx, dy int
		if _, err := fmt.Sscanf(scanner.Text(), "%d %d", &dx, &dy); err != nil {
			continue
		}
		client.SetInput(DemoInput{DX: dx, DY: dy})
	}
}
