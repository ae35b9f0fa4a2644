package rover

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-rover/internal/metrics"
	"github.com/teslashibe/go-rover/pkg/eventlog"
)

// band is the obstacle distance classification.
type band string

const (
	bandClear   band = "clear"   // d >= SafeDistance
	bandCaution band = "caution" // DangerDistance <= d < SafeDistance
	bandDanger  band = "danger"  // d < DangerDistance
)

func classify(d float64, s Settings) band {
	switch {
	case d >= s.SafeDistance:
		return bandClear
	case d >= s.DangerDistance:
		return bandCaution
	default:
		return bandDanger
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatCM prints a reading with at least one decimal: 15.0, 12.35.
func formatCM(d float64) string {
	s := strconv.FormatFloat(d, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// driveLoop runs one drive cycle per DriveInterval until ctx is done.
func (c *Coordinator) driveLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.settings.DriveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.driveCycle(ctx)
		}
	}
}

// driveCycle reads the sensor once and applies the three-band decision.
// It does nothing unless the rover is autonomous.
func (c *Coordinator) driveCycle(ctx context.Context) {
	if c.Mode() != ModeAutonomous {
		return
	}

	raw, err := c.sensor.ReadDistance()
	if err != nil {
		metrics.DriveDecisions.WithLabelValues("sensor_error").Inc()
		c.Record(eventlog.TypeError, fmt.Sprintf("Distance sensor unavailable: %v", err))
		return
	}
	d := round2(raw)
	metrics.Distance.Set(d)

	s := c.settings
	b := classify(d, s)

	c.mu.Lock()
	if c.state.Mode != ModeAutonomous {
		// An operator took over while we were reading the sensor.
		c.mu.Unlock()
		return
	}
	metrics.DriveDecisions.WithLabelValues(string(b)).Inc()

	switch b {
	case bandClear:
		err = c.steerAndDrive(0)
	case bandCaution:
		err = c.steerAndDrive(s.TurnAngle)
	case bandDanger:
		c.Record(eventlog.TypeWarning, fmt.Sprintf("Obstacle detected at %scm", formatCM(d)))
		err = c.act.SetSteeringAngle(-s.TurnAngle)
	}
	c.mu.Unlock()

	if err != nil {
		c.Record(eventlog.TypeError, fmt.Sprintf("Autonomous actuation failed: %v", err))
		return
	}
	if b == bandDanger {
		c.backUp(ctx)
	}
}

// steerAndDrive sets the steering angle and drives forward. Caller holds c.mu.
func (c *Coordinator) steerAndDrive(angle int) error {
	if err := c.act.SetSteeringAngle(angle); err != nil {
		return err
	}
	return c.act.DriveForward(c.settings.MoveSpeed)
}

// backUp reverses in BackupSteps pulses, then resumes forward with the
// away-steering still applied. The lock is held only for each pulse; the
// delay between pulses waits on ctx so shutdown is observed promptly. If the
// rover leaves autonomous mode or shuts down mid-maneuver, the maneuver is
// abandoned without resuming forward.
func (c *Coordinator) backUp(ctx context.Context) {
	s := c.settings
	for i := 0; i < s.BackupSteps; i++ {
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		if c.state.Mode != ModeAutonomous {
			c.mu.Unlock()
			return
		}
		err := c.act.DriveBackward(s.BackupSpeed)
		c.mu.Unlock()

		if err != nil {
			c.Record(eventlog.TypeError, fmt.Sprintf("Backup pulse failed: %v", err))
			return
		}
		if !sleepCtx(ctx, s.BackupStepDelay) {
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeAutonomous {
		return
	}
	if err := c.act.DriveForward(s.MoveSpeed); err != nil {
		c.Record(eventlog.TypeError, fmt.Sprintf("Autonomous actuation failed: %v", err))
	}
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
