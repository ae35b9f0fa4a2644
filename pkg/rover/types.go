package rover

import (
	"strings"
	"time"
)

// Mode is the rover's authority model.
type Mode string

const (
	// ModeManual accepts movement commands from operators.
	ModeManual Mode = "manual"
	// ModeAutonomous lets the drive loop steer around obstacles.
	ModeAutonomous Mode = "autonomous"
)

// ParseMode accepts exactly "manual" or "autonomous".
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeManual, ModeAutonomous:
		return Mode(s), true
	}
	return "", false
}

// Direction is a manual movement command.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
	Halt     Direction = "stop"
)

// ParseDirection parses a movement command name.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Forward, Backward, Left, Right, Halt:
		return d, true
	}
	return "", false
}

// State is the coordinator's mutable aggregate. Values returned to callers
// are copies.
type State struct {
	RoverID    int
	RoverName  string
	Mode       Mode
	Battery    int
	CameraPan  int
	CameraTilt int
}

// Status is a point-in-time view of the rover for observers.
type Status struct {
	RoverID   int
	RoverName string
	Battery   int
	// Distance is nil when the sensor could not be read.
	Distance   *float64
	Mode       Mode
	Timestamp  time.Time
	CameraPan  int
	CameraTilt int
}

// Heartbeat is a liveness record, either produced by this rover or
// submitted by another one.
type Heartbeat struct {
	Status    string
	Timestamp time.Time
	RoverID   int
	RoverName string
	Battery   int
}

// Settings tunes the autonomous drive loop and the status ticker.
// Distances are centimeters, speeds percent, angles degrees.
type Settings struct {
	SafeDistance    float64
	DangerDistance  float64
	MoveSpeed       int
	BackupSpeed     int
	TurnAngle       int
	BackupSteps     int
	DriveInterval   time.Duration
	BackupStepDelay time.Duration
	StatusInterval  time.Duration
}

// DefaultSettings returns the tuning used on the reference rover.
func DefaultSettings() Settings {
	return Settings{
		SafeDistance:    40,
		DangerDistance:  20,
		MoveSpeed:       15,
		BackupSpeed:     7,
		TurnAngle:       30,
		BackupSteps:     3,
		DriveInterval:   250 * time.Millisecond,
		BackupStepDelay: 250 * time.Millisecond,
		StatusInterval:  500 * time.Millisecond,
	}
}
