package network

import (
	"context"

	"netcode/logging"
)

const (
	// EventAckAdvanced is emitted when a client acknowledges a newer tick.
	EventAckAdvanced logging.EventType = "network.ack_advanced"
	// EventAckRegression is emitted when a client reports an older acknowledgement than previously recorded.
	EventAckRegression logging.EventType = "network.ack_regression"
	// EventDuplicateAuth is emitted when an authoritative insert targets a tick that already has one.
	EventDuplicateAuth logging.EventType = "network.duplicate_auth"
	// EventProtocolViolation is emitted when an inbound message carries a kind the client never expects to receive.
	EventProtocolViolation logging.EventType = "network.protocol_violation"
	// EventGapRequested is emitted when the client asks the server to resend missing authoritative ticks.
	EventGapRequested logging.EventType = "network.gap_requested"
	// EventResyncEngaged is emitted when prediction is disabled because the client has fallen too far behind.
	EventResyncEngaged logging.EventType = "network.resync_engaged"
	// EventRollbackApplied is emitted when an authoritative input is newly inserted for a tick the predictor had already simulated.
	EventRollbackApplied logging.EventType = "network.rollback_applied"
)

// AckPayload captures acknowledgement progression details.
type AckPayload struct {
	Previous uint64 `json:"previous"`
	Ack      uint64 `json:"ack"`
}

// AckAdvanced publishes a debug event when a client acknowledgement advances.
func AckAdvanced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AckPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAckAdvanced,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// AckRegression publishes a warning event when a client acknowledgement regresses.
func AckRegression(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload AckPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventAckRegression,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// DuplicateAuthPayload describes a rejected duplicate authoritative insert.
type DuplicateAuthPayload struct {
	Tick uint64 `json:"tick"`
}

// DuplicateAuth publishes a debug event when an authoritative insert is dropped because the tick is already recorded.
func DuplicateAuth(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DuplicateAuthPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDuplicateAuth,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
	})
}

// ProtocolViolationPayload describes an inbound message of a kind this client never expects to receive.
type ProtocolViolationPayload struct {
	Kind string `json:"kind"`
}

// ProtocolViolation publishes a warning event for a client-illegal inbound message kind.
func ProtocolViolation(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ProtocolViolationPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventProtocolViolation,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
	})
}

// GapRequestedPayload describes a request for missing authoritative ticks.
type GapRequestedPayload struct {
	Ticks []uint64 `json:"ticks"`
}

// GapRequested publishes a debug event whenever the client asks the server to resend missing authoritative ticks.
func GapRequested(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload GapRequestedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGapRequested,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
	})
}

// ResyncPayload describes a resync-engaged transition.
type ResyncPayload struct {
	TargetTick    uint64 `json:"targetTick"`
	MaxAuthTick   uint64 `json:"maxAuthTick"`
	BehindByTicks uint64 `json:"behindByTicks"`
}

// ResyncEngaged publishes a warning event when prediction is disabled because the client has fallen too far behind the server.
func ResyncEngaged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResyncPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResyncEngaged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "network",
		Payload:  payload,
	})
}

// RollbackPayload describes a rollback: a freshly derived authoritative world replacing what prediction had assumed for the same tick.
type RollbackPayload struct {
	Tick uint64 `json:"tick"`
}

// RollbackApplied publishes a debug event when an authoritative input is inserted for a tick that had already been predicted.
func RollbackApplied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RollbackPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRollbackApplied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "network",
		Payload:  payload,
	})
}
