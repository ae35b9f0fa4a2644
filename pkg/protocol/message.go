// Package protocol defines the JSON records exchanged with operators, ground
// stations and push-stream observers.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// MessageType identifies an uplink envelope.
type MessageType string

const (
	TypeEvent     MessageType = "event"     // RoverEvent
	TypeHeartbeat MessageType = "heartbeat" // Heartbeat
)

// Message is the envelope used on the MQTT uplink, where one topic carries
// both heartbeats and events.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// Timestamp is an instant encoded as fractional Unix seconds. Decoding also
// accepts RFC 3339 strings, which some ground station clients send.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// MarshalJSON encodes the instant as seconds with microsecond precision.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	secs := float64(t.UnixMicro()) / 1e6
	return strconv.AppendFloat(nil, secs, 'f', -1, 64), nil
}

// UnmarshalJSON decodes a number of seconds, an RFC 3339 string or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}

	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return fmt.Errorf("timestamp %s: not a number of seconds", data)
	}
	whole, frac := math.Modf(secs)
	t.Time = time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond))
	return nil
}

// =============================================================================
// Ingest records
// =============================================================================

// Heartbeat is a rover liveness report.
type Heartbeat struct {
	Status    string    `json:"status"`
	Timestamp Timestamp `json:"timestamp"`
	RoverID   int       `json:"rover_id"`
	RoverName string    `json:"rover_name"`
	Battery   int       `json:"battery"` // percent
}

// RoverEvent is the wire form of an event.
type RoverEvent struct {
	RoverID   int       `json:"rover_id"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// =============================================================================
// Commands
// =============================================================================

// MovementCommand carries one of forward, backward, left, right or stop.
type MovementCommand struct {
	Command string `json:"command"`
}

// CameraCommand points the camera. Absent angles are left unchanged.
type CameraCommand struct {
	Pan  *int `json:"pan,omitempty"`
	Tilt *int `json:"tilt,omitempty"`
}

// ModeCommand selects manual or autonomous operation.
type ModeCommand struct {
	Mode string `json:"mode"`
}

// =============================================================================
// Responses
// =============================================================================

// SuccessResponse reports whether a command was applied.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse carries a client-visible failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusResponse is the rover status snapshot.
type StatusResponse struct {
	RoverID    int       `json:"rover_id"`
	RoverName  string    `json:"rover_name"`
	Battery    int       `json:"battery"`
	Distance   *float64  `json:"distance"` // null when the sensor failed
	Mode       string    `json:"mode"`
	Timestamp  Timestamp `json:"timestamp"`
	CameraPan  int       `json:"camera_pan"`
	CameraTilt int       `json:"camera_tilt"`
}

// EventsPage is one page of the newest-first event history.
type EventsPage struct {
	Events  []RoverEvent `json:"events"`
	Total   int          `json:"total"`
	HasMore bool         `json:"has_more"`
}

// SnapshotResult reports an image capture.
type SnapshotResult struct {
	Success   bool   `json:"success"`
	Filename  string `json:"filename,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // ISO 8601
	Error     string `json:"error,omitempty"`
}

// SnapshotInfo describes one stored image.
type SnapshotInfo struct {
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"` // ISO 8601
}

// SnapshotList lists stored images, oldest first.
type SnapshotList struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status  string  `json:"status"`
	RoverID int     `json:"rover_id"`
	Mode    string  `json:"mode"`
	Uptime  float64 `json:"uptime_seconds"`
}
