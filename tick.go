// Package netcode implements the client-side core of a rollback/replay
// lockstep networking engine: an input store, an authoritative-world cache,
// a clock-synchronization consumer, a message-driven receive loop, a
// heartbeat loop, a prediction/rollback engine, and the input-submission and
// supervisor glue that ties them together behind a single Client handle.
package netcode

import "netcode/internal/ids"

// Tick is a monotonic, signed simulation step counter. Tick 0 is the
// initial state shared by every participant.
type Tick = ids.Tick

// PlayerId is an opaque integer assigned by the server on connect. It is
// constant for the lifetime of a connection.
type PlayerId = ids.PlayerId

// MessageType is the closed set of wire tags carried by every message the
// engine sends or receives (see proto.Type* for the concrete string
// values). Exported so application code can name the wire kinds without
// importing the internal wire package.
type MessageType string

const (
	MessageConnect           MessageType = "connect"
	MessageConnected         MessageType = "connected"
	MessageHeartbeat         MessageType = "heartbeat"
	MessageHeartbeatResponse MessageType = "heartbeatResponse"
	MessageSubmitInput       MessageType = "submitInput"
	MessageAck               MessageType = "ack"
	MessageAuthInput         MessageType = "authInput"
	MessageHintInput         MessageType = "hintInput"
	MessageRequestAuthInput  MessageType = "requestAuthInput"
)

// Simulation bundles everything the engine needs to know about the
// application's opaque input and world types: how to produce the initial
// values, how to serialize an input for the wire, and the deterministic
// step function every participant must compute identically.
//
// Step receives, for every player with a known input at tick, the pair of
// (previous, current) input so carry-forward and edge-triggered logic can
// both be expressed by the application without the engine caring which.
// Implementations must iterate the map in PlayerId order internally if
// anything about their result depends on iteration order; the engine itself
// always builds InputPair maps deterministically but Go map iteration order
// is not, so Step is responsible for sorting if it needs to.
type Simulation[I any, W any] interface {
	// InitialInput returns input0, the value assumed for a player with no
	// recorded input at a given tick.
	InitialInput() I
	// InitialWorld returns world0, the state at tick 0.
	InitialWorld() W
	// Step advances prevWorld by one tick given the per-player input pairs
	// for tick. It must be a pure function of its arguments: every
	// participant computing Step for the same (tick, inputs, prevWorld)
	// must produce byte-identical worlds.
	Step(tick Tick, inputs map[PlayerId]InputPair[I], prevWorld W) W
	// EncodeInput serializes an input for wire transmission.
	EncodeInput(input I) ([]byte, error)
	// DecodeInput deserializes a wire-transmitted input.
	DecodeInput(data []byte) (I, error)
}

// InputPair is the (previous, current) input supplied to Step for one
// player at one tick.
type InputPair[I any] struct {
	Prev I
	Curr I
}
