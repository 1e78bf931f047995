package netcode

import (
	"context"

	netlog "netcode/logging/network"
)

// Sample returns the predicted world at the current target tick. It is a
// convenience wrapper around SamplePair, spec §6.
func (c *Client[I, W]) Sample() W {
	_, world := c.SamplePair()
	return world
}

// SamplePair implements the sample' operation (spec §4.7 C7): it picks a
// base snapshot, re-simulates forward applying authoritative then hint
// inputs up to the clock estimator's current target tick, bounded by the
// prediction allowance, and returns the authoritative worlds newly derived
// since the last call alongside the predicted world at the target.
//
// The whole algorithm runs under the state mutex: every store access it
// performs must be atomic with respect to the receive loop, and none of
// the work here blocks on I/O, so holding the lock for the full pass keeps
// the critical section simple at negligible cost (Design Notes §9).
func (c *Client[I, W]) SamplePair() ([]W, W) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samplePairLocked()
}

func (c *Client[I, W]) samplePairLocked() ([]W, W) {
	target := c.clock.EstimateTargetTick(0)

	startTick, startWorld := c.st.worlds.FloorEntry(target)
	startInputs, ok := c.st.inputs.LookupAuth(startTick)
	if !ok {
		// Impossible given correct (0, world0, emptyInputs) seeding; spec
		// §7 classifies this as a programmer error.
		panic("netcode: missing authoritative input map at floor-entry tick")
	}

	allowance := c.cfg.MaxPredictionTicks
	if target.Sub(c.st.maxAuthTick) > int64(c.cfg.ResyncThresholdTicks) {
		allowance = 0
		behind := uint64(target.Sub(c.st.maxAuthTick))
		netlog.ResyncEngaged(context.Background(), c.publisher, uint64(target), c.actorRef(), netlog.ResyncPayload{
			TargetTick:    uint64(target),
			MaxAuthTick:   uint64(c.st.maxAuthTick),
			BehindByTicks: behind,
		})
	}

	t := startTick
	world := startWorld
	currentInputs := startInputs
	wasAuthPath := true

	input0 := c.sim.InitialInput()

	for t < target {
		tNext := t.Add(1)
		authNext, hasAuthNext := c.st.inputs.LookupAuth(tNext)
		isAuthPath := wasAuthPath && hasAuthNext

		if !isAuthPath && allowance == 0 {
			break
		}

		var inputsNext map[PlayerId]I
		if hasAuthNext {
			inputsNext = authNext
		} else {
			hints, _ := c.st.inputs.LookupHint(tNext)
			inputsNext = carryForward(currentInputs, hints)
		}

		paired := buildInputPairs(currentInputs, inputsNext, input0)
		wNext := c.sim.Step(tNext, paired, world)

		if isAuthPath {
			c.st.worlds.InsertDerived(tNext, wNext)
		} else {
			allowance--
		}

		t = tNext
		currentInputs = inputsNext
		world = wNext
		wasAuthPath = isAuthPath
	}

	if t > c.st.predictedThrough {
		c.st.predictedThrough = t
	}

	newWorlds := c.st.worlds.Since(c.st.lastSampledAuthWorldTick)
	c.st.lastSampledAuthWorldTick = c.st.worlds.MaxKey()

	return newWorlds, world
}

// carryForward builds the next tick's input map when no authoritative
// input has arrived for it yet: hints win on collision, every other
// player repeats their previous input (Design Notes §9).
func carryForward[I any](prev, hints map[PlayerId]I) map[PlayerId]I {
	out := make(map[PlayerId]I, len(prev)+len(hints))
	for k, v := range hints {
		out[k] = v
	}
	for k, v := range prev {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// buildInputPairs pairs each player's next input with their previous one,
// falling back to input0 for a player with no previously recorded input.
func buildInputPairs[I any](prev, next map[PlayerId]I, input0 I) map[PlayerId]InputPair[I] {
	out := make(map[PlayerId]InputPair[I], len(next))
	for p, curr := range next {
		prevInput, ok := prev[p]
		if !ok {
			prevInput = input0
		}
		out[p] = InputPair[I]{Prev: prevInput, Curr: curr}
	}
	return out
}
