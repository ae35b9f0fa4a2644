// Package eventlog provides the rover's bounded, append-only event history.
package eventlog

import (
	"fmt"
	"strings"
	"time"
)

// EventType classifies an event.
type EventType string

const (
	TypeStatus   EventType = "STATUS"
	TypeWarning  EventType = "WARNING"
	TypeError    EventType = "ERROR"
	TypeControl  EventType = "CONTROL"
	TypeCamera   EventType = "CAMERA"
	TypeAnalysis EventType = "ANALYSIS"
)

// Types lists every known event type.
var Types = []EventType{TypeStatus, TypeWarning, TypeError, TypeControl, TypeCamera, TypeAnalysis}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType parses an event type name, case-insensitively.
func ParseType(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// Event is an immutable record of something the rover did or observed.
type Event struct {
	RoverID   int
	Type      EventType
	Message   string
	Timestamp time.Time
}

// NewEvent creates an event stamped with the current time.
func NewEvent(roverID int, t EventType, message string) Event {
	return Event{
		RoverID:   roverID,
		Type:      t,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] rover=%d %s", e.Type, e.RoverID, e.Message)
}
