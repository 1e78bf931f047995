// Package proto implements the wire-compatible message envelopes described
// in the spec's external interfaces section. Every payload that carries an
// opaque application input stays in raw-byte form here; only the
// root-level client (which holds the application's Simulation codec) ever
// turns those bytes into the concrete input type.
//
// The exact "compact map" layout for AuthInput's hint list is called out in
// the spec as an open question inherited from a live server this module
// has no access to. The layout below — an ordered list of (player, input)
// pairs per tick, sorted by player id for determinism — is this module's
// concrete decision; see DESIGN.md.
package proto

import (
	"encoding/json"
	"fmt"
	"sort"

	"netcode/internal/ids"
)

// Version tracks the wire-protocol revision this codec produces and
// accepts. A mismatched Ver on an inbound message is a decode error.
const Version = 1

// Message type identifiers, matching the closed variant set in spec §6.
const (
	TypeConnect           = "connect"
	TypeConnected         = "connected"
	TypeHeartbeat         = "heartbeat"
	TypeHeartbeatResponse = "heartbeatResponse"
	TypeSubmitInput       = "submitInput"
	TypeAck               = "ack"
	TypeAuthInput         = "authInput"
	TypeHintInput         = "hintInput"
	TypeRequestAuthInput  = "requestAuthInput"
)

// PlayerInput pairs a player id with its raw serialized input, used inside
// the compact per-tick maps carried by AuthInput.
type PlayerInput struct {
	Player ids.PlayerId `json:"p"`
	Input  []byte       `json:"i"`
}

// TickInputs is the compact form of one tick's per-player input map:
// player ids sorted ascending so the wire encoding is deterministic across
// sends of logically identical content.
type TickInputs []PlayerInput

// FromMap builds a deterministically ordered TickInputs from a map.
func FromMap(m map[ids.PlayerId][]byte) TickInputs {
	out := make(TickInputs, 0, len(m))
	for p, in := range m {
		out = append(out, PlayerInput{Player: p, Input: in})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

// ToMap expands a TickInputs back into a map.
func (t TickInputs) ToMap() map[ids.PlayerId][]byte {
	m := make(map[ids.PlayerId][]byte, len(t))
	for _, pi := range t {
		m[pi.Player] = pi.Input
	}
	return m
}

type envelope struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
}

// --- outbound (client -> server) ---

type connectWire struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

// EncodeConnect renders a Connect request.
func EncodeConnect(sentAtUnixMilli int64) ([]byte, error) {
	return json.Marshal(connectWire{Ver: Version, Type: TypeConnect, SentAt: sentAtUnixMilli})
}

type heartbeatWire struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	SentAt int64  `json:"sentAt"`
}

// EncodeHeartbeat renders a Heartbeat liveness/clock-sample request.
func EncodeHeartbeat(sentAtUnixMilli int64) ([]byte, error) {
	return json.Marshal(heartbeatWire{Ver: Version, Type: TypeHeartbeat, SentAt: sentAtUnixMilli})
}

type submitInputWire struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	Tick  int64  `json:"tick"`
	Input []byte `json:"input"`
}

// EncodeSubmitInput renders a local player's input for a target tick.
func EncodeSubmitInput(tick ids.Tick, input []byte) ([]byte, error) {
	return json.Marshal(submitInputWire{Ver: Version, Type: TypeSubmitInput, Tick: tick.Int64(), Input: input})
}

type ackWire struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Tick int64  `json:"tick"`
}

// EncodeAck renders an acknowledgement of the unbroken authoritative
// prefix through tick.
func EncodeAck(tick ids.Tick) ([]byte, error) {
	return json.Marshal(ackWire{Ver: Version, Type: TypeAck, Tick: tick.Int64()})
}

type requestAuthInputWire struct {
	Ver   int     `json:"ver"`
	Type  string  `json:"type"`
	Ticks []int64 `json:"ticks"`
}

// EncodeRequestAuthInput renders a request for missing authoritative
// ticks. The caller is responsible for bounding len(ticks) to
// MaxRequestAuthInputs before calling this.
func EncodeRequestAuthInput(ticks []ids.Tick) ([]byte, error) {
	raw := make([]int64, len(ticks))
	for i, t := range ticks {
		raw[i] = t.Int64()
	}
	return json.Marshal(requestAuthInputWire{Ver: Version, Type: TypeRequestAuthInput, Ticks: raw})
}

// --- inbound (server -> client) ---

// Inbound is the decoded form of any server->client message. Exactly one
// of the typed fields is populated, selected by Kind.
type Inbound struct {
	Kind string

	// Connected
	PlayerId ids.PlayerId

	// HeartbeatResponse
	ClientSendMillis int64
	ServerRecvMillis int64

	// AuthInput
	HeadTick  ids.Tick
	AuthTicks []TickInputs
	HintTicks []TickInputs

	// HintInput
	Tick   ids.Tick
	Player ids.PlayerId
	Input  []byte
}

type connectedWire struct {
	Ver      int          `json:"ver"`
	Type     string       `json:"type"`
	PlayerId ids.PlayerId `json:"playerId"`
}

type heartbeatResponseWire struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ClientSend int64  `json:"clientSend"`
	ServerRecv int64  `json:"serverRecv"`
}

type authInputWire struct {
	Ver      int          `json:"ver"`
	Type     string       `json:"type"`
	HeadTick int64        `json:"headTick"`
	Auth     []TickInputs `json:"auth"`
	Hint     []TickInputs `json:"hint"`
}

type hintInputWire struct {
	Ver    int          `json:"ver"`
	Type   string       `json:"type"`
	Tick   int64        `json:"tick"`
	Player ids.PlayerId `json:"player"`
	Input  []byte       `json:"input"`
}

// DecodeInbound classifies and decodes a server->client wire message.
// Messages of a kind this client is not allowed to receive (the
// client-illegal kinds from spec §4.5) are returned with only their Kind
// set; rejecting them is the caller's responsibility. DecodeInbound fails
// on malformed JSON, an unsupported protocol version, or an unknown type.
func DecodeInbound(payload []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Inbound{}, fmt.Errorf("proto: decode envelope: %w", err)
	}
	if env.Ver != Version {
		return Inbound{}, fmt.Errorf("proto: unsupported protocol version %d", env.Ver)
	}

	switch env.Type {
	case TypeConnected:
		var w connectedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Inbound{}, fmt.Errorf("proto: decode connected: %w", err)
		}
		return Inbound{Kind: TypeConnected, PlayerId: w.PlayerId}, nil

	case TypeHeartbeatResponse:
		var w heartbeatResponseWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Inbound{}, fmt.Errorf("proto: decode heartbeatResponse: %w", err)
		}
		return Inbound{Kind: TypeHeartbeatResponse, ClientSendMillis: w.ClientSend, ServerRecvMillis: w.ServerRecv}, nil

	case TypeAuthInput:
		var w authInputWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Inbound{}, fmt.Errorf("proto: decode authInput: %w", err)
		}
		return Inbound{
			Kind:      TypeAuthInput,
			HeadTick:  ids.Tick(w.HeadTick),
			AuthTicks: w.Auth,
			HintTicks: w.Hint,
		}, nil

	case TypeHintInput:
		var w hintInputWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return Inbound{}, fmt.Errorf("proto: decode hintInput: %w", err)
		}
		return Inbound{Kind: TypeHintInput, Tick: ids.Tick(w.Tick), Player: w.Player, Input: w.Input}, nil

	case TypeConnect, TypeHeartbeat, TypeSubmitInput, TypeAck, TypeRequestAuthInput:
		// Client-illegal inbound kinds: the caller logs a protocol
		// violation and drops the message.
		return Inbound{Kind: env.Type}, nil

	default:
		return Inbound{}, fmt.Errorf("proto: unknown message type %q", env.Type)
	}
}

// EncodeConnected renders a Connected acknowledgement (used by test
// fixtures / fake servers, not by the client itself).
func EncodeConnected(player ids.PlayerId) ([]byte, error) {
	return json.Marshal(connectedWire{Ver: Version, Type: TypeConnected, PlayerId: player})
}

// EncodeHeartbeatResponse renders a HeartbeatResponse (test fixtures).
func EncodeHeartbeatResponse(clientSendMillis, serverRecvMillis int64) ([]byte, error) {
	return json.Marshal(heartbeatResponseWire{Ver: Version, Type: TypeHeartbeatResponse, ClientSend: clientSendMillis, ServerRecv: serverRecvMillis})
}

// EncodeAuthInput renders an AuthInput message (test fixtures).
func EncodeAuthInput(head ids.Tick, auth, hint []TickInputs) ([]byte, error) {
	return json.Marshal(authInputWire{Ver: Version, Type: TypeAuthInput, HeadTick: head.Int64(), Auth: auth, Hint: hint})
}

// EncodeHintInput renders a HintInput message (test fixtures).
func EncodeHintInput(tick ids.Tick, player ids.PlayerId, input []byte) ([]byte, error) {
	return json.Marshal(hintInputWire{Ver: Version, Type: TypeHintInput, Tick: tick.Int64(), Player: player, Input: input})
}
