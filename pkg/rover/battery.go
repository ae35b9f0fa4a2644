package rover

import (
	"context"
	"math"
	"time"

	"github.com/teslashibe/go-rover/internal/metrics"
)

// BatteryModel reports the battery level in percent after elapsed time
// since startup.
type BatteryModel interface {
	Level(elapsed time.Duration) int
}

// BatteryFunc adapts a function to BatteryModel.
type BatteryFunc func(elapsed time.Duration) int

// Level calls f.
func (f BatteryFunc) Level(elapsed time.Duration) int {
	return f(elapsed)
}

// FullBattery never drains.
type FullBattery struct{}

// Level always returns 100.
func (FullBattery) Level(time.Duration) int { return 100 }

// LinearDrain drains PerSecond percent every second from Start.
type LinearDrain struct {
	Start     int
	PerSecond float64
}

// Level returns the remaining charge, never below zero.
func (l LinearDrain) Level(elapsed time.Duration) int {
	v := float64(l.Start) - l.PerSecond*elapsed.Seconds()
	return clampPercent(int(math.Ceil(v)))
}

func clampPercent(v int) int {
	return max(0, min(100, v))
}

// batteryLoop samples the battery model every StatusInterval.
func (c *Coordinator) batteryLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.settings.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.updateBattery()
		}
	}
}

// updateBattery applies the model. The stored level only ever decreases.
func (c *Coordinator) updateBattery() {
	level := clampPercent(c.battery.Level(c.now().Sub(c.started)))

	c.mu.Lock()
	if level < c.state.Battery {
		c.state.Battery = level
	}
	current := c.state.Battery
	c.mu.Unlock()

	metrics.Battery.Set(float64(current))
}
