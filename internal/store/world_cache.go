package store

import "netcode/internal/ids"

// WorldCache holds the authoritative world snapshot for one opaque world
// type W, keyed by tick. Like InputStore, it takes no lock of its own.
//
// Invariants (see spec §3):
//   - (0, world0) is present from construction.
//   - Entries are inserted, never mutated, never removed.
//   - A world at tick t>0 is only ever inserted once the unbroken
//     authoritative input prefix through t exists; that invariant is
//     enforced by the caller (the prediction engine), not by WorldCache.
type WorldCache[W any] struct {
	worlds map[ids.Tick]W
	keys   []ids.Tick // sorted ascending, kept in lockstep with worlds
}

// NewWorldCache seeds the cache with (0, world0).
func NewWorldCache[W any](world0 W) *WorldCache[W] {
	return &WorldCache[W]{
		worlds: map[ids.Tick]W{0: world0},
		keys:   []ids.Tick{0},
	}
}

// Get returns the world stored at tick, if any.
func (c *WorldCache[W]) Get(tick ids.Tick) (W, bool) {
	w, ok := c.worlds[tick]
	return w, ok
}

// FloorEntry returns the tick/world pair with the largest key <= tick. It
// always succeeds because tick 0 is seeded at construction and is never
// removed.
func (c *WorldCache[W]) FloorEntry(tick ids.Tick) (ids.Tick, W) {
	// keys is sorted ascending; scan from the end for the common case where
	// tick is at or beyond the most recently derived world.
	for i := len(c.keys) - 1; i >= 0; i-- {
		if c.keys[i] <= tick {
			return c.keys[i], c.worlds[c.keys[i]]
		}
	}
	// Unreachable: key 0 is always present and tick 0 is the floor of any
	// non-negative, and ticks are not expected to go negative.
	return c.keys[0], c.worlds[c.keys[0]]
}

// InsertDerived inserts a newly derived authoritative world at tick.
// Re-inserting at an existing key is a no-op: determinism guarantees the
// value would be identical, so there is nothing to reconcile.
func (c *WorldCache[W]) InsertDerived(tick ids.Tick, world W) {
	if _, exists := c.worlds[tick]; exists {
		return
	}
	c.worlds[tick] = world
	c.insertKeySorted(tick)
}

// MaxKey returns the highest tick present in the cache.
func (c *WorldCache[W]) MaxKey() ids.Tick {
	return c.keys[len(c.keys)-1]
}

// Since returns the worlds for every key strictly greater than after, in
// ascending tick order.
func (c *WorldCache[W]) Since(after ids.Tick) []W {
	var out []W
	for _, k := range c.keys {
		if k > after {
			out = append(out, c.worlds[k])
		}
	}
	return out
}

func (c *WorldCache[W]) insertKeySorted(tick ids.Tick) {
	// Ticks are derived in increasing order during a single sample pass, so
	// the common case is an append; fall back to an insertion scan for
	// safety if that ever isn't true.
	n := len(c.keys)
	if n == 0 || c.keys[n-1] < tick {
		c.keys = append(c.keys, tick)
		return
	}
	idx := n
	for i, k := range c.keys {
		if k > tick {
			idx = i
			break
		}
	}
	c.keys = append(c.keys, 0)
	copy(c.keys[idx+1:], c.keys[idx:])
	c.keys[idx] = tick
}
