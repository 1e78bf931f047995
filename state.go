package netcode

import (
	"netcode/internal/ids"
	"netcode/internal/store"
)

// state is the single mutex-protected record grouping every shared cell the
// receive loop, heartbeat loop, predictor, and submitter touch. Design
// Notes §9 calls this out explicitly: contention is low (one receive loop,
// occasional foreground calls) and critical sections are short, so one
// mutex guarding one record is preferred over per-cell locking or an STM
// library. Client holds a pointer to this record and holds Client.mu for
// the duration of each "transaction" described in spec §4.5/§4.7/§4.8; the
// store types underneath (InputStore, WorldCache) take no lock of their
// own precisely because Client.mu already serializes access to them.
type state[I any, W any] struct {
	inputs *store.InputStore[I]
	worlds *store.WorldCache[W]

	maxAuthTick ids.Tick

	myPlayerID   ids.PlayerId
	haveMyPlayer bool

	currentInput I

	// lastSubmittedTick is -1 until the first SetInput call; no real tick
	// is ever negative, so it doubles as the "nothing submitted yet" flag.
	lastSubmittedTick ids.Tick

	lastSampledAuthWorldTick ids.Tick

	// predictedThrough is the highest tick the predictor has ever carried
	// a world estimate for, authoritative or not. The receive loop uses it
	// to tell whether a freshly inserted authoritative input corrects a
	// tick that had already been sampled speculatively, i.e. whether this
	// insert represents a rollback from the caller's point of view.
	predictedThrough ids.Tick
}

func newState[I any, W any](sim Simulation[I, W]) *state[I, W] {
	return &state[I, W]{
		inputs:            store.NewInputStore[I](),
		worlds:            store.NewWorldCache[W](sim.InitialWorld()),
		currentInput:      sim.InitialInput(),
		lastSubmittedTick: -1,
	}
}

// setMyPlayerIDLocked sets the player id exactly once. It reports whether
// this call was the one that set it, so the caller can distinguish the
// first ConnAck from a duplicate.
func (s *state[I, W]) setMyPlayerIDLocked(id ids.PlayerId) bool {
	if s.haveMyPlayer {
		return false
	}
	s.myPlayerID = id
	s.haveMyPlayer = true
	return true
}
