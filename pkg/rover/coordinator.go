package rover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/internal/metrics"
	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/robot"
)

// Options configures a Coordinator.
type Options struct {
	RoverID   int
	RoverName string
	// StartMode is the mode at construction. Zero value means manual.
	StartMode Mode

	EventCapacity     int
	HeartbeatCapacity int

	Settings Settings
	// Battery models drain over time. Nil means a full battery that never drains.
	Battery BatteryModel

	Logger *slog.Logger
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Coordinator is the single owner of rover state.
// Construct one per process with New and pass it to every handler.
type Coordinator struct {
	opts     Options
	settings Settings
	act      robot.Actuator
	sensor   robot.DistanceSensor
	battery  BatteryModel
	log      *slog.Logger
	now      func() time.Time
	events   *eventlog.Log

	// mu serializes state changes with the actuation calls that go with them.
	mu      sync.Mutex
	state   State
	mode    *fsm.FSM
	started time.Time

	hbMu       sync.RWMutex
	heartbeats []Heartbeat

	obsMu     sync.RWMutex
	observers []func(eventlog.Event)

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a coordinator driving act and reading sensor.
// No hardware call is made until Run.
func New(act robot.Actuator, sensor robot.DistanceSensor, opts Options) *Coordinator {
	if opts.StartMode == "" {
		opts.StartMode = ModeManual
	}
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	if opts.HeartbeatCapacity <= 0 {
		opts.HeartbeatCapacity = 100
	}
	if opts.Logger == nil {
		opts.Logger = log.Component("rover")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Battery == nil {
		opts.Battery = FullBattery{}
	}

	c := &Coordinator{
		opts:     opts,
		settings: opts.Settings,
		act:      act,
		sensor:   sensor,
		battery:  opts.Battery,
		log:      opts.Logger,
		now:      opts.Now,
		events:   eventlog.New(opts.EventCapacity),
		state: State{
			RoverID:   opts.RoverID,
			RoverName: opts.RoverName,
			Mode:      opts.StartMode,
			Battery:   clampPercent(opts.Battery.Level(0)),
		},
	}
	c.started = c.now()
	c.mode = newModeFSM(opts.StartMode, c.enterMode)
	metrics.Battery.Set(float64(c.state.Battery))
	metrics.Autonomous.Set(boolGauge(opts.StartMode == ModeAutonomous))
	return c
}

// Events returns the event log. Readers may page it directly.
func (c *Coordinator) Events() *eventlog.Log {
	return c.events
}

// Settings returns the drive tuning in use.
func (c *Coordinator) Settings() Settings {
	return c.settings
}

// State returns a copy of the rover state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the current mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode
}

// OnEvent registers fn to be called after every append.
// fn runs on the appending goroutine, possibly with the state lock held,
// so it must not block or call back into the coordinator.
func (c *Coordinator) OnEvent(fn func(eventlog.Event)) {
	c.obsMu.Lock()
	c.observers = append(c.observers, fn)
	c.obsMu.Unlock()
}

// Record appends an event from this rover.
func (c *Coordinator) Record(t eventlog.EventType, message string) eventlog.Event {
	e := eventlog.Event{
		RoverID:   c.opts.RoverID,
		Type:      t,
		Message:   message,
		Timestamp: c.now(),
	}
	c.append(e)
	return e
}

// SubmitEvent stores an event produced elsewhere (another rover, the vision
// subsystem). A zero timestamp is replaced with the current time.
func (c *Coordinator) SubmitEvent(e eventlog.Event) eventlog.Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = c.now()
	}
	c.append(e)
	return e
}

// Page returns one page of the newest-first event history.
func (c *Coordinator) Page(start, limit int) eventlog.Page {
	return c.events.Page(start, limit)
}

func (c *Coordinator) append(e eventlog.Event) {
	c.events.Append(e)
	metrics.EventsTotal.WithLabelValues(string(e.Type)).Inc()

	switch e.Type {
	case eventlog.TypeError:
		c.log.Error(e.Message, "rover_id", e.RoverID)
	case eventlog.TypeWarning:
		c.log.Warn(e.Message, "rover_id", e.RoverID)
	default:
		c.log.Debug(e.Message, "rover_id", e.RoverID, "type", e.Type)
	}

	c.obsMu.RLock()
	observers := c.observers
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(e)
	}
}

// Run centers the steering and camera, then runs the autonomous drive loop
// and the battery ticker until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if err := c.center(); err != nil {
		c.Record(eventlog.TypeError, fmt.Sprintf("Failed to center servos: %v", err))
	}
	c.Record(eventlog.TypeStatus, fmt.Sprintf("Rover %s online in %s mode", c.state.RoverName, c.state.Mode))
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.driveLoop(gctx) })
	g.Go(func() error { return c.batteryLoop(gctx) })
	return g.Wait()
}

// Start runs Run in the background. Use Shutdown to stop it.
func (c *Coordinator) Start(ctx context.Context) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("coordinator stopped", "error", err)
		}
	}()
}

// Shutdown stops the background tasks, waiting at most timeout for them,
// then stops the motors, centers steering and camera and releases the
// hardware if it implements io.Closer.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.lifeMu.Lock()
	cancel, done := c.cancel, c.done
	c.lifeMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(timeout):
			c.log.Warn("background tasks did not stop in time", "timeout", timeout)
		}
	}

	var errs []error
	c.mu.Lock()
	if err := c.act.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop: %w", err))
	}
	if err := c.center(); err != nil {
		errs = append(errs, err)
	}
	c.mu.Unlock()

	if closer, ok := c.act.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release hardware: %w", err))
		}
	}
	return errors.Join(errs...)
}

// center points steering and camera straight ahead. Caller holds c.mu.
func (c *Coordinator) center() error {
	if err := c.act.SetSteeringAngle(0); err != nil {
		return fmt.Errorf("center steering: %w", err)
	}
	if err := c.act.SetCameraAngle(0, 0); err != nil {
		return fmt.Errorf("center camera: %w", err)
	}
	c.state.CameraPan, c.state.CameraTilt = 0, 0
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
