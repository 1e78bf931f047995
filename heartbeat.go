package netcode

import (
	"time"

	"netcode/internal/proto"
)

// runHeartbeatLoop is the background task implementing C6 (spec §4.6): it
// periodically announces presence, sending Connect while unconnected and
// Heartbeat afterward, at a ~50ms cadence before the clock consumer has
// produced analytics and a gentler ~500ms cadence once it has. Grounded on
// the teacher's internal/sim.Loop fixed-interval select-on-ticker pattern,
// minus the simulation-specific parts.
func (c *Client[I, W]) runHeartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(heartbeatIntervalNoAnalytics)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sendHeartbeatOrConnect()
			ticker.Reset(c.heartbeatInterval())
		}
	}
}

func (c *Client[I, W]) heartbeatInterval() time.Duration {
	if _, ok := c.clock.Analytics(); ok {
		return heartbeatIntervalWithAnalytics
	}
	return heartbeatIntervalNoAnalytics
}

func (c *Client[I, W]) sendHeartbeatOrConnect() {
	now := time.Now().UnixMilli()

	c.mu.Lock()
	connected := c.st.haveMyPlayer
	c.mu.Unlock()

	if !connected {
		c.enqueueSend(proto.EncodeConnect(now))
		return
	}
	c.enqueueSend(proto.EncodeHeartbeat(now))
}
