package rover

import (
	"fmt"
	"strconv"

	"github.com/teslashibe/go-rover/internal/metrics"
	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/robot"
)

// Move executes a manual movement command.
//
// Outside manual mode the command is refused with a WARNING event and no
// actuation. Unknown directions are refused the same way.
func (c *Coordinator) Move(direction string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeManual {
		c.Record(eventlog.TypeWarning, "Movement command ignored - not in manual mode")
		metrics.CommandsTotal.WithLabelValues("move", "rejected").Inc()
		return false
	}

	dir, ok := ParseDirection(direction)
	if !ok {
		c.Record(eventlog.TypeWarning, fmt.Sprintf("Unknown movement command: %q", direction))
		metrics.CommandsTotal.WithLabelValues("move", "rejected").Inc()
		return false
	}

	if err := c.actuate(dir); err != nil {
		c.Record(eventlog.TypeError, fmt.Sprintf("Manual command %s failed: %v", dir, err))
		metrics.CommandsTotal.WithLabelValues("move", "failed").Inc()
		return false
	}

	c.Record(eventlog.TypeControl, fmt.Sprintf("Manual command executed: %s", dir))
	metrics.CommandsTotal.WithLabelValues("move", "success").Inc()
	return true
}

// actuate maps a direction to motor and steering calls. Caller holds c.mu.
func (c *Coordinator) actuate(dir Direction) error {
	s := c.settings
	switch dir {
	case Forward:
		return c.act.DriveForward(s.MoveSpeed)
	case Backward:
		return c.act.DriveBackward(s.MoveSpeed)
	case Left:
		if err := c.act.SetSteeringAngle(-s.TurnAngle); err != nil {
			return err
		}
		return c.act.DriveForward(s.MoveSpeed)
	case Right:
		if err := c.act.SetSteeringAngle(s.TurnAngle); err != nil {
			return err
		}
		return c.act.DriveForward(s.MoveSpeed)
	case Halt:
		return c.halt()
	}
	return fmt.Errorf("unhandled direction %q", dir)
}

// Camera points the camera. Nil angles are left unchanged. Camera commands
// are accepted in every mode and always report success; a servo failure is
// recorded as an ERROR event.
func (c *Coordinator) Camera(pan, tilt *int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pan != nil || tilt != nil {
		newPan, newTilt := c.state.CameraPan, c.state.CameraTilt
		if pan != nil {
			newPan = robot.ClampPan(*pan)
		}
		if tilt != nil {
			newTilt = robot.ClampTilt(*tilt)
		}

		if err := c.act.SetCameraAngle(newPan, newTilt); err != nil {
			c.Record(eventlog.TypeError, fmt.Sprintf("Camera adjustment failed: %v", err))
		} else {
			c.state.CameraPan, c.state.CameraTilt = newPan, newTilt
		}
	}

	c.Record(eventlog.TypeControl, fmt.Sprintf("Camera adjusted to pan:%s tilt:%s", optional(pan), optional(tilt)))
	metrics.CommandsTotal.WithLabelValues("camera", "success").Inc()
	return true
}

func optional(v *int) string {
	if v == nil {
		return "null"
	}
	return strconv.Itoa(*v)
}
