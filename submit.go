package netcode

import "netcode/internal/proto"

// SetInput implements C8 (spec §4.8): it records the local player's
// current input and, if the clock-derived target tick has advanced past
// the last tick actually sent, stores a local hint (giving the local
// player zero perceived input latency) and schedules a SubmitInput send.
// Ticks between the previous submission and the new target are
// deliberately left empty; other clients carry-forward the previous input
// for them, matching the predictor's own carry-forward assumption.
func (c *Client[I, W]) SetInput(newInput I) {
	target := c.clock.EstimateTargetTick(c.cfg.FixedInputLatency)

	c.mu.Lock()
	c.st.currentInput = newInput
	shouldSend := target > c.st.lastSubmittedTick
	var player PlayerId
	if shouldSend {
		c.st.lastSubmittedTick = target
		player = c.st.myPlayerID
		c.st.inputs.InsertHintOne(target, player, newInput)
	}
	c.mu.Unlock()

	if !shouldSend {
		return
	}

	encoded, err := c.sim.EncodeInput(newInput)
	if err != nil {
		c.logger.Printf("netcode: encode input for tick %d: %v", target, err)
		return
	}
	c.enqueueSend(proto.EncodeSubmitInput(target, encoded))
}
