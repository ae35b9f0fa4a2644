// Package robot provides interfaces and implementations for rover hardware.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package robot

import "errors"

// ErrNotConnected is returned when the hardware backend cannot be reached.
var ErrNotConnected = errors.New("robot: hardware not connected")

// Driver controls the drive motors. Speeds are percent of full power (0-100).
type Driver interface {
	DriveForward(speed int) error
	DriveBackward(speed int) error
	Stop() error
}

// Steering controls the front wheel servo. Negative angles steer left.
type Steering interface {
	SetSteeringAngle(angle int) error
}

// CameraMount controls the pan/tilt servos the camera sits on.
type CameraMount interface {
	SetCameraAngle(pan, tilt int) error
}

// DistanceSensor reads the forward ultrasonic sensor.
type DistanceSensor interface {
	// ReadDistance returns the distance to the nearest obstacle in centimeters.
	ReadDistance() (float64, error)
}

// Actuator is everything the coordinator drives.
type Actuator interface {
	Driver
	Steering
	CameraMount
}

// Hardware is the composite interface for a full rover backend.
// Close releases the underlying devices.
type Hardware interface {
	Actuator
	DistanceSensor
	Close() error
}

// Ensure implementations satisfy Hardware
var (
	_ Hardware = (*HTTPController)(nil)
	_ Hardware = (*Sim)(nil)
)

// DistanceFunc adapts a plain function to DistanceSensor.
type DistanceFunc func() (float64, error)

// ReadDistance calls f.
func (f DistanceFunc) ReadDistance() (float64, error) {
	return f()
}
