package netcode

import (
	"context"
	"errors"
	"time"

	"netcode/internal/ids"
	"netcode/internal/proto"
	"netcode/internal/store"
	"netcode/logging"
	netlog "netcode/logging/network"
)

// runReceiveLoop is the background task implementing C5 (spec §4.5): it
// continuously receives wire messages and dispatches them by kind,
// mutating the shared state record under its mutex for each message, then
// enqueuing any resulting Ack/RequestAuthInput outside the lock. Grounded
// on the teacher's Hub method shape (lock, mutate, compute snapshot,
// unlock) and logging/network/helpers.go's ack-event pattern.
func (c *Client[I, W]) runReceiveLoop() {
	defer c.wg.Done()
	for {
		payload, err := c.conn.Receive(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			// Transport failure is treated as packet loss (spec §7): log
			// and keep receiving, recovery is driven by heartbeats and
			// re-requests, not by surfacing an error here.
			c.logger.Printf("netcode: receive: %v", err)
			continue
		}

		msg, err := proto.DecodeInbound(payload)
		if err != nil {
			c.logger.Printf("netcode: decode inbound message: %v", err)
			continue
		}

		c.handleInbound(msg)
	}
}

func (c *Client[I, W]) handleInbound(msg proto.Inbound) {
	switch msg.Kind {
	case proto.TypeConnected:
		c.handleConnected(msg.PlayerId)

	case proto.TypeHeartbeatResponse:
		c.clock.Record(
			time.UnixMilli(msg.ClientSendMillis),
			time.UnixMilli(msg.ServerRecvMillis),
			time.Now(),
		)

	case proto.TypeAuthInput:
		c.handleAuthInput(msg)

	case proto.TypeHintInput:
		c.handleHintInput(msg)

	case proto.TypeConnect, proto.TypeHeartbeat, proto.TypeSubmitInput, proto.TypeAck, proto.TypeRequestAuthInput:
		netlog.ProtocolViolation(context.Background(), c.publisher, uint64(c.currentMaxAuthTick()), c.actorRef(), netlog.ProtocolViolationPayload{Kind: msg.Kind})

	default:
		c.logger.Printf("netcode: unhandled inbound kind %q", msg.Kind)
	}
}

func (c *Client[I, W]) handleConnected(playerID ids.PlayerId) {
	c.mu.Lock()
	wasFirst := c.st.setMyPlayerIDLocked(playerID)
	c.mu.Unlock()

	if wasFirst {
		c.markConnected()
		return
	}
	c.logger.Printf("netcode: duplicate Connected message for player %d ignored", playerID)
}

func (c *Client[I, W]) handleHintInput(msg proto.Inbound) {
	input, err := c.sim.DecodeInput(msg.Input)
	if err != nil {
		c.logger.Printf("netcode: decode hint input: %v", err)
		return
	}
	c.mu.Lock()
	c.st.inputs.InsertHintOne(msg.Tick, msg.Player, input)
	c.mu.Unlock()
}

// decodedTick pairs a tick with its already-decoded per-player input map,
// used to hold the results of decoding an AuthInput message's auth/hint
// lists before the state mutex is taken.
type decodedTick[I any] struct {
	tick  Tick
	inner map[PlayerId]I
}

// handleAuthInput implements spec §4.5's AuthInput dispatch. Every
// application-level decode (c.sim.DecodeInput, via decodeTickInputs) runs
// before the state mutex is acquired, matching handleHintInput and spec
// §5's requirement that in-memory store critical sections stay short: the
// lock only ever guards pure map inserts and the bookkeeping that depends
// on them. Sends and log events are performed after unlocking.
func (c *Client[I, W]) handleAuthInput(msg proto.Inbound) {
	if len(msg.AuthTicks) == 0 && len(msg.HintTicks) == 0 {
		return
	}

	headTick := msg.HeadTick
	newestTick := headTick.Add(int64(len(msg.AuthTicks)) - 1)

	auth := make([]decodedTick[I], 0, len(msg.AuthTicks))
	for i, ti := range msg.AuthTicks {
		tick := headTick.Add(int64(i))
		inner, err := c.decodeTickInputs(ti)
		if err != nil {
			c.logger.Printf("netcode: decode auth input at tick %d: %v", tick, err)
			continue
		}
		auth = append(auth, decodedTick[I]{tick: tick, inner: inner})
	}

	hints := make([]decodedTick[I], 0, len(msg.HintTicks))
	for i, ti := range msg.HintTicks {
		tick := newestTick.Add(1 + int64(i))
		inner, err := c.decodeTickInputs(ti)
		if err != nil {
			c.logger.Printf("netcode: decode hint input at tick %d: %v", tick, err)
			continue
		}
		hints = append(hints, decodedTick[I]{tick: tick, inner: inner})
	}

	var (
		sendAck      bool
		ackAdvanced  bool
		ackRegressed bool
		previousAck  Tick
		ackTick      Tick
		missing      []Tick
		rollback     []Tick
	)

	c.mu.Lock()
	previousAck = c.st.maxAuthTick
	if headTick <= c.st.maxAuthTick.Add(1) && c.st.maxAuthTick < newestTick {
		c.st.maxAuthTick = newestTick
		sendAck = true
		ackAdvanced = true
		ackTick = c.st.maxAuthTick
	} else if len(msg.AuthTicks) > 0 && newestTick < c.st.maxAuthTick {
		ackRegressed = true
	}

	for _, dt := range auth {
		if err := c.st.inputs.InsertAuth(dt.tick, dt.inner); err != nil {
			var dup store.ErrDuplicateAuth
			if errors.As(err, &dup) {
				netlog.DuplicateAuth(context.Background(), c.publisher, uint64(dt.tick), c.actorRef(), netlog.DuplicateAuthPayload{Tick: uint64(dt.tick)})
				continue
			}
			c.logger.Printf("netcode: insert auth input at tick %d: %v", dt.tick, err)
			continue
		}
		if dt.tick <= c.st.predictedThrough {
			rollback = append(rollback, dt.tick)
		}
	}

	for _, dt := range hints {
		c.st.inputs.MergeHint(dt.tick, dt.inner, c.st.myPlayerID, c.st.haveMyPlayer)
	}

	if maxKey, ok := c.st.inputs.MaxAuthKey(); ok {
		for t := c.st.maxAuthTick.Add(1); t < maxKey; t = t.Add(1) {
			if _, ok := c.st.inputs.LookupAuth(t); !ok {
				missing = append(missing, t)
				if len(missing) >= MaxRequestAuthInputs {
					break
				}
			}
		}
	}
	maxAuthTickNow := c.st.maxAuthTick
	c.mu.Unlock()

	for _, tick := range rollback {
		netlog.RollbackApplied(context.Background(), c.publisher, uint64(tick), c.actorRef(), netlog.RollbackPayload{Tick: uint64(tick)})
	}
	if ackAdvanced {
		netlog.AckAdvanced(context.Background(), c.publisher, uint64(ackTick), c.actorRef(), netlog.AckPayload{Previous: uint64(previousAck), Ack: uint64(ackTick)}, nil)
	}
	if ackRegressed {
		netlog.AckRegression(context.Background(), c.publisher, uint64(newestTick), c.actorRef(), netlog.AckPayload{Previous: uint64(previousAck), Ack: uint64(newestTick)}, nil)
	}
	if sendAck {
		c.enqueueSend(proto.EncodeAck(ackTick))
	}
	if len(missing) > 0 {
		missingU := make([]uint64, len(missing))
		for i, t := range missing {
			missingU[i] = uint64(t)
		}
		netlog.GapRequested(context.Background(), c.publisher, uint64(maxAuthTickNow), c.actorRef(), netlog.GapRequestedPayload{Ticks: missingU})
		c.enqueueSend(proto.EncodeRequestAuthInput(missing))
	}
}

// decodeTickInputs expands a compact wire TickInputs into the opaque,
// application-decoded input map InsertAuth/MergeHint expect.
func (c *Client[I, W]) decodeTickInputs(ti proto.TickInputs) (map[ids.PlayerId]I, error) {
	out := make(map[ids.PlayerId]I, len(ti))
	for _, pi := range ti {
		input, err := c.sim.DecodeInput(pi.Input)
		if err != nil {
			return nil, err
		}
		out[pi.Player] = input
	}
	return out, nil
}

func (c *Client[I, W]) currentMaxAuthTick() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.maxAuthTick
}

func (c *Client[I, W]) actorRef() logging.EntityRef {
	return logging.EntityRef{ID: c.sessionID, Kind: logging.EntityKindPlayer}
}
