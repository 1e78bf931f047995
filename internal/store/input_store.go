// Package store implements the pure, unsynchronized data structures that
// back the rollback client's authoritative and speculative input maps, plus
// the authoritative world cache. None of the types here take a lock: every
// method assumes the caller already holds whatever mutex protects the
// enclosing transaction. This mirrors the teacher's "single mutex-protected
// record" default (grouping several cells under one critical section rather
// than giving each its own lock) described for the client state machine.
package store

import "netcode/internal/ids"

// ErrDuplicateAuth is returned by InsertAuth when the tick already has an
// authoritative entry. Authoritative data is idempotent: the caller logs
// and drops the duplicate rather than treating it as fatal.
type ErrDuplicateAuth struct {
	Tick ids.Tick
}

func (e ErrDuplicateAuth) Error() string {
	return "store: duplicate authoritative insert"
}

// InputStore holds the authoritative and hint input maps for one opaque
// input type I, keyed by tick and then by player.
//
// Invariants (see spec §3):
//   - Auth[0] exists and is the empty map from construction.
//   - Auth entries are inserted, never modified, never removed.
//   - Hint entries may be replaced, but a replacement always preserves the
//     local player's own previously recorded hint for that tick.
type InputStore[I any] struct {
	auth       map[ids.Tick]map[ids.PlayerId]I
	hint       map[ids.Tick]map[ids.PlayerId]I
	maxAuthKey ids.Tick
	haveMax    bool
}

// NewInputStore constructs a store seeded with the tick-0 empty auth entry
// required by the data model invariants.
func NewInputStore[I any]() *InputStore[I] {
	s := &InputStore[I]{
		auth: make(map[ids.Tick]map[ids.PlayerId]I),
		hint: make(map[ids.Tick]map[ids.PlayerId]I),
	}
	s.auth[0] = make(map[ids.PlayerId]I)
	s.maxAuthKey = 0
	s.haveMax = true
	return s
}

// InsertAuth records a complete authoritative input map for tick. It
// returns ErrDuplicateAuth if the tick was already present; the map is left
// unmodified in that case.
func (s *InputStore[I]) InsertAuth(tick ids.Tick, inner map[ids.PlayerId]I) error {
	if _, exists := s.auth[tick]; exists {
		return ErrDuplicateAuth{Tick: tick}
	}
	s.auth[tick] = inner
	if !s.haveMax || tick > s.maxAuthKey {
		s.maxAuthKey = tick
		s.haveMax = true
	}
	return nil
}

// MergeHint upserts the hint map for tick, preferring (in order): the local
// player's own previously recorded hint, the incoming hints, then any other
// previously recorded hints. hasSelf is false when the local player id is
// not yet known (before the connection handshake completes).
func (s *InputStore[I]) MergeHint(tick ids.Tick, newHints map[ids.PlayerId]I, self ids.PlayerId, hasSelf bool) {
	old, exists := s.hint[tick]
	if !exists {
		copied := make(map[ids.PlayerId]I, len(newHints))
		for k, v := range newHints {
			copied[k] = v
		}
		s.hint[tick] = copied
		return
	}

	merged := make(map[ids.PlayerId]I, len(old)+len(newHints))
	if hasSelf {
		if v, ok := old[self]; ok {
			merged[self] = v
		}
	}
	for k, v := range newHints {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	for k, v := range old {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	s.hint[tick] = merged
}

// InsertHintOne upserts a single player's hint cell at tick.
func (s *InputStore[I]) InsertHintOne(tick ids.Tick, player ids.PlayerId, input I) {
	inner, exists := s.hint[tick]
	if !exists {
		inner = make(map[ids.PlayerId]I, 1)
		s.hint[tick] = inner
	}
	inner[player] = input
}

// LookupAuth returns the authoritative input map for tick, if present.
func (s *InputStore[I]) LookupAuth(tick ids.Tick) (map[ids.PlayerId]I, bool) {
	inner, ok := s.auth[tick]
	return inner, ok
}

// LookupHint returns the hint input map for tick, if present.
func (s *InputStore[I]) LookupHint(tick ids.Tick) (map[ids.PlayerId]I, bool) {
	inner, ok := s.hint[tick]
	return inner, ok
}

// MaxAuthKey returns the largest tick for which an authoritative entry has
// ever been inserted, regardless of gaps below it. This is distinct from
// the client's MaxAuthTick high-water mark, which tracks the unbroken
// prefix; MaxAuthKey only bounds how far a gap-fill request can need to
// scan.
func (s *InputStore[I]) MaxAuthKey() (ids.Tick, bool) {
	return s.maxAuthKey, s.haveMax
}
