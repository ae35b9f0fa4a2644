package robot

import (
	"math"
	"sync"
	"time"
)

// Sim is an in-process rover used when no motor daemon is available.
// Driving forward closes the distance to a virtual wall, backing up or
// steering away opens it again, so the autonomous loop exercises all bands.
type Sim struct {
	mu sync.Mutex

	speed    int // signed: negative when reversing
	steering int
	pan      int
	tilt     int

	distance float64
	lastRead time.Time
	closed   bool

	// MaxDistance is the reading when nothing is in front of the rover.
	MaxDistance float64
	// CMPerSecondAtFull is the closing speed at 100% power.
	CMPerSecondAtFull float64
}

// NewSim creates a simulator with the wall at startDistance centimeters.
func NewSim(startDistance float64) *Sim {
	return &Sim{
		distance:          startDistance,
		MaxDistance:       300,
		CMPerSecondAtFull: 120,
	}
}

func (s *Sim) DriveForward(speed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	s.advance()
	s.speed = ClampSpeed(speed)
	return nil
}

func (s *Sim) DriveBackward(speed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	s.advance()
	s.speed = -ClampSpeed(speed)
	return nil
}

func (s *Sim) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	s.advance()
	s.speed = 0
	return nil
}

func (s *Sim) SetSteeringAngle(angle int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	s.advance()
	s.steering = ClampSteering(angle)
	return nil
}

func (s *Sim) SetCameraAngle(pan, tilt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	s.pan, s.tilt = ClampPan(pan), ClampTilt(tilt)
	return nil
}

func (s *Sim) ReadDistance() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrNotConnected
	}
	s.advance()
	return s.distance, nil
}

// SetDistance places the virtual wall.
func (s *Sim) SetDistance(cm float64) {
	s.mu.Lock()
	s.distance = cm
	s.lastRead = time.Now()
	s.mu.Unlock()
}

// Camera returns the current pan and tilt.
func (s *Sim) Camera() (pan, tilt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pan, s.tilt
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.speed = 0
	s.mu.Unlock()
	return nil
}

// advance integrates motion since the last call. Caller holds the lock.
func (s *Sim) advance() {
	now := time.Now()
	if s.lastRead.IsZero() {
		s.lastRead = now
		return
	}
	dt := now.Sub(s.lastRead).Seconds()
	s.lastRead = now

	// Only the component of motion toward the wall closes the gap.
	heading := math.Cos(float64(s.steering) * math.Pi / 180)
	closing := float64(s.speed) / MaxSpeed * s.CMPerSecondAtFull * dt * heading
	if s.steering != 0 && s.speed > 0 {
		// Turning away slowly reveals open space.
		closing -= math.Abs(float64(s.steering)) / 10 * dt
	}

	s.distance = math.Max(2, math.Min(s.MaxDistance, s.distance-closing))
}
