package rover

import (
	"errors"
	"time"
)

// ErrNoHeartbeat is returned when no heartbeat has been recorded yet.
var ErrNoHeartbeat = errors.New("no heartbeat data available")

// Status captures the rover state at one instant plus a live distance
// reading. The state fields are copied in a single critical section; the
// sensor is read afterwards so a slow sensor never holds up commands.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	st := c.state
	ts := c.now()
	c.mu.Unlock()

	s := Status{
		RoverID:    st.RoverID,
		RoverName:  st.RoverName,
		Battery:    st.Battery,
		Mode:       st.Mode,
		Timestamp:  ts,
		CameraPan:  st.CameraPan,
		CameraTilt: st.CameraTilt,
	}

	if d, err := c.sensor.ReadDistance(); err == nil {
		d = round2(d)
		s.Distance = &d
	} else {
		c.log.Warn("status distance read failed", "error", err)
	}
	return s
}

// Heartbeat returns this rover's own liveness record.
func (c *Coordinator) Heartbeat() Heartbeat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Heartbeat{
		Status:    "ok",
		Timestamp: c.now(),
		RoverID:   c.state.RoverID,
		RoverName: c.state.RoverName,
		Battery:   c.state.Battery,
	}
}

// SubmitHeartbeat stores a heartbeat and returns it. A zero timestamp is
// replaced with the current time. History is bounded; the oldest entries
// are dropped first.
func (c *Coordinator) SubmitHeartbeat(hb Heartbeat) Heartbeat {
	if hb.Timestamp.IsZero() {
		hb.Timestamp = c.now()
	}

	c.hbMu.Lock()
	defer c.hbMu.Unlock()
	c.heartbeats = append(c.heartbeats, hb)
	if over := len(c.heartbeats) - c.opts.HeartbeatCapacity; over > 0 {
		c.heartbeats = append(c.heartbeats[:0:0], c.heartbeats[over:]...)
	}
	return hb
}

// LatestHeartbeat returns the most recently submitted heartbeat.
func (c *Coordinator) LatestHeartbeat() (Heartbeat, error) {
	c.hbMu.RLock()
	defer c.hbMu.RUnlock()
	if len(c.heartbeats) == 0 {
		return Heartbeat{}, ErrNoHeartbeat
	}
	return c.heartbeats[len(c.heartbeats)-1], nil
}

// Uptime returns the time since the coordinator was created.
func (c *Coordinator) Uptime() time.Duration {
	return c.now().Sub(c.started)
}
