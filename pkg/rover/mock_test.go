package rover

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/eventlog"
)

// call is one recorded actuation.
type call struct {
	name string
	args []int
	at   time.Time
}

func (c call) String() string {
	return fmt.Sprintf("%s%v", c.name, c.args)
}

// mockActuator records all commands for testing
type mockActuator struct {
	mu     sync.Mutex
	calls  []call
	fail   map[string]error
	closed bool
}

func newMockActuator() *mockActuator {
	return &mockActuator{fail: make(map[string]error)}
}

func (m *mockActuator) record(name string, args ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{name: name, args: args, at: time.Now()})
	return m.fail[name]
}

func (m *mockActuator) DriveForward(speed int) error  { return m.record("forward", speed) }
func (m *mockActuator) DriveBackward(speed int) error { return m.record("backward", speed) }
func (m *mockActuator) Stop() error                   { return m.record("stop") }
func (m *mockActuator) SetSteeringAngle(angle int) error {
	return m.record("steer", angle)
}
func (m *mockActuator) SetCameraAngle(pan, tilt int) error {
	return m.record("camera", pan, tilt)
}

func (m *mockActuator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockActuator) failOn(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[name] = err
}

func (m *mockActuator) snapshot() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockActuator) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockActuator) names() []string {
	calls := m.snapshot()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// scriptedSensor returns readings in order, repeating the last one.
type scriptedSensor struct {
	mu       sync.Mutex
	readings []reading
	reads    int
}

type reading struct {
	cm  float64
	err error
}

var errNoEcho = errors.New("no echo")

func sensorOf(readings ...reading) *scriptedSensor {
	return &scriptedSensor{readings: readings}
}

func (s *scriptedSensor) ReadDistance() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readings[min(s.reads, len(s.readings)-1)]
	s.reads++
	return r.cm, r.err
}

func (s *scriptedSensor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func fastSettings() Settings {
	s := DefaultSettings()
	s.DriveInterval = 5 * time.Millisecond
	s.BackupStepDelay = 5 * time.Millisecond
	s.StatusInterval = 5 * time.Millisecond
	return s
}

func newTestCoordinator(act *mockActuator, sensor *scriptedSensor, mode Mode) *Coordinator {
	return New(act, sensor, Options{
		RoverID:       7,
		RoverName:     "rover_7",
		StartMode:     mode,
		EventCapacity: 50,
		Settings:      fastSettings(),
		Logger:        log.Discard(),
	})
}

func eventsOfType(c *Coordinator, t eventlog.EventType) []eventlog.Event {
	var out []eventlog.Event
	for _, e := range c.Events().Snapshot() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
