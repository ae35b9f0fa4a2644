package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/rover"
)

// ISOFormat is the layout used for snapshot timestamps.
const ISOFormat = "2006-01-02T15:04:05"

// =============================================================================
// Conversions between wire records and core types
// =============================================================================

// FromEvent converts a logged event to its wire form.
func FromEvent(e eventlog.Event) RoverEvent {
	return RoverEvent{
		RoverID:   e.RoverID,
		EventType: string(e.Type),
		Message:   e.Message,
		Timestamp: NewTimestamp(e.Timestamp),
	}
}

// FromEvents converts a slice of events, preserving order.
func FromEvents(events []eventlog.Event) []RoverEvent {
	out := make([]RoverEvent, len(events))
	for i, e := range events {
		out[i] = FromEvent(e)
	}
	return out
}

// ToEvent validates a submitted event. The event type is matched
// case-insensitively. A missing timestamp stays zero for the caller to fill.
func (r RoverEvent) ToEvent() (eventlog.Event, error) {
	t, err := eventlog.ParseType(r.EventType)
	if err != nil {
		return eventlog.Event{}, err
	}
	if r.Message == "" {
		return eventlog.Event{}, errors.New("message is required")
	}
	return eventlog.Event{
		RoverID:   r.RoverID,
		Type:      t,
		Message:   r.Message,
		Timestamp: r.Timestamp.Time,
	}, nil
}

// FromPage converts an event page.
func FromPage(p eventlog.Page) EventsPage {
	return EventsPage{
		Events:  FromEvents(p.Events),
		Total:   p.Total,
		HasMore: p.HasMore,
	}
}

// FromHeartbeat converts a stored heartbeat.
func FromHeartbeat(hb rover.Heartbeat) Heartbeat {
	return Heartbeat{
		Status:    hb.Status,
		Timestamp: NewTimestamp(hb.Timestamp),
		RoverID:   hb.RoverID,
		RoverName: hb.RoverName,
		Battery:   hb.Battery,
	}
}

// ToHeartbeat validates a submitted heartbeat.
func (h Heartbeat) ToHeartbeat() (rover.Heartbeat, error) {
	if h.Status == "" {
		return rover.Heartbeat{}, errors.New("status is required")
	}
	if h.Battery < 0 || h.Battery > 100 {
		return rover.Heartbeat{}, fmt.Errorf("battery %d out of range 0-100", h.Battery)
	}
	return rover.Heartbeat{
		Status:    h.Status,
		Timestamp: h.Timestamp.Time,
		RoverID:   h.RoverID,
		RoverName: h.RoverName,
		Battery:   h.Battery,
	}, nil
}

// FromStatus converts a status snapshot.
func FromStatus(s rover.Status) StatusResponse {
	return StatusResponse{
		RoverID:    s.RoverID,
		RoverName:  s.RoverName,
		Battery:    s.Battery,
		Distance:   s.Distance,
		Mode:       string(s.Mode),
		Timestamp:  NewTimestamp(s.Timestamp),
		CameraPan:  s.CameraPan,
		CameraTilt: s.CameraTilt,
	}
}

// NewSnapshotInfo describes a stored image taken at the given local time.
func NewSnapshotInfo(filename string, taken time.Time) SnapshotInfo {
	return SnapshotInfo{Filename: filename, Timestamp: taken.Format(ISOFormat)}
}

// NewSnapshotResult reports a successful capture.
func NewSnapshotResult(filename string, taken time.Time) SnapshotResult {
	return SnapshotResult{Success: true, Filename: filename, Timestamp: taken.Format(ISOFormat)}
}

// SnapshotFailure reports a failed capture.
func SnapshotFailure(err error) SnapshotResult {
	return SnapshotResult{Success: false, Error: err.Error()}
}
