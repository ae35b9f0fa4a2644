package rover

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/teslashibe/go-rover/internal/metrics"
	"github.com/teslashibe/go-rover/pkg/eventlog"
)

// FSM event names. Both modes can be entered from either mode, including
// re-entering the current one.
const (
	eventToManual     = "to_manual"
	eventToAutonomous = "to_autonomous"
)

func newModeFSM(initial Mode, onEnter func(Mode)) *fsm.FSM {
	states := []string{string(ModeManual), string(ModeAutonomous)}
	return fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: eventToManual, Src: states, Dst: string(ModeManual)},
			{Name: eventToAutonomous, Src: states, Dst: string(ModeAutonomous)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(Mode(e.Dst))
			},
		},
	)
}

func transitionFor(m Mode) string {
	if m == ModeAutonomous {
		return eventToAutonomous
	}
	return eventToManual
}

// enterMode is the FSM enter_state callback. It runs inside SetMode with
// c.mu held.
func (c *Coordinator) enterMode(m Mode) {
	prev := c.state.Mode
	c.state.Mode = m
	metrics.Autonomous.Set(boolGauge(m == ModeAutonomous))
	c.log.Info("mode transition", "from", prev, "to", m)
}

// SetMode switches between manual and autonomous operation.
//
// An unknown mode name is rejected: false, no state change, no event.
// Otherwise the mode is committed and a STATUS event recorded; entering
// manual (even from manual) also stops the motors and centers the steering
// before the lock is released, so observers never see manual mode with the
// rover still moving under autonomous control.
func (c *Coordinator) SetMode(ctx context.Context, name string) bool {
	m, ok := ParseMode(name)
	if !ok {
		metrics.CommandsTotal.WithLabelValues("mode", "rejected").Inc()
		c.log.Debug("unknown mode rejected", "mode", name)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.mode.Event(ctx, transitionFor(m))
	var same fsm.NoTransitionError
	if err != nil && !errors.As(err, &same) {
		metrics.CommandsTotal.WithLabelValues("mode", "failed").Inc()
		c.log.Error("mode transition failed", "mode", m, "error", err)
		return false
	}
	// Re-entering the current state fires no enter callback.
	c.state.Mode = m

	if m == ModeManual {
		if err := c.halt(); err != nil {
			c.Record(eventlog.TypeError, fmt.Sprintf("Failed to stop rover on mode change: %v", err))
		}
	}

	c.Record(eventlog.TypeStatus, fmt.Sprintf("Mode changed to %s", m))
	metrics.CommandsTotal.WithLabelValues("mode", "success").Inc()
	return true
}

// halt stops the drive motors and centers the steering. Caller holds c.mu.
func (c *Coordinator) halt() error {
	if err := c.act.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := c.act.SetSteeringAngle(0); err != nil {
		return fmt.Errorf("center steering: %w", err)
	}
	return nil
}
