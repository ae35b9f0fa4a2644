package robot

import (
	"context"
	"fmt"
)

// Options selects and configures a hardware backend.
type Options struct {
	// Driver is "http" or "sim".
	Driver string
	// URL is the motor daemon base URL for the http driver.
	URL string
	// SimDistance is the initial wall distance for the simulator.
	SimDistance float64
}

// Open acquires exclusive control of the rover hardware.
// A failure here is fatal for the service: nothing else may drive the motors.
func Open(ctx context.Context, opts Options) (Hardware, error) {
	switch opts.Driver {
	case "http":
		c := NewHTTPController(opts.URL)
		if err := c.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("open hardware at %s: %w", opts.URL, err)
		}
		return c, nil
	case "sim", "":
		d := opts.SimDistance
		if d <= 0 {
			d = 100
		}
		return NewSim(d), nil
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", opts.Driver)
	}
}
