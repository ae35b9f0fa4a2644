package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/rover"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
	}{
		{
			name:    "event message",
			msgType: TypeEvent,
			data:    RoverEvent{RoverID: 1, EventType: "STATUS", Message: "ok"},
		},
		{
			name:    "heartbeat message",
			msgType: TypeHeartbeat,
			data:    Heartbeat{Status: "ok", RoverID: 1, Battery: 90},
		},
		{
			name:    "nil data",
			msgType: TypeHeartbeat,
			data:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if err != nil {
				t.Fatalf("NewMessage() error = %v", err)
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
			if tt.data == nil && msg.Data != nil {
				t.Errorf("NewMessage() data = %s, want nil", msg.Data)
			}
		})
	}
}

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage(TypeEvent, RoverEvent{RoverID: 2, EventType: "WARNING", Message: "low battery"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := msg.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeEvent {
		t.Errorf("type = %s, want event", parsed.Type)
	}
	var ev RoverEvent
	if err := parsed.ParseData(&ev); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if ev.Message != "low battery" || ev.RoverID != 2 {
		t.Errorf("event = %+v", ev)
	}

	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("ParseMessage() accepted invalid JSON")
	}
}

func TestTimestamp_Marshal(t *testing.T) {
	ts := NewTimestamp(time.Unix(1700000000, 250_000_000))
	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1700000000.25" {
		t.Errorf("marshal = %s, want 1700000000.25", data)
	}

	data, _ = json.Marshal(Timestamp{})
	if string(data) != "null" {
		t.Errorf("zero marshal = %s, want null", data)
	}
}

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: `1700000000.5`, want: time.Unix(1700000000, 500_000_000)},
		{in: `1700000000`, want: time.Unix(1700000000, 0)},
		{in: `"2024-03-01T12:00:00Z"`, want: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{in: `null`},
		{in: `"yesterday"`, wantErr: true},
		{in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.in), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Equal(tt.want) {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, ts.Time, tt.want)
			}
		})
	}
}

func TestRoverEvent_ToEvent(t *testing.T) {
	tests := []struct {
		name    string
		in      RoverEvent
		want    eventlog.EventType
		wantErr bool
	}{
		{"upper case", RoverEvent{RoverID: 1, EventType: "ANALYSIS", Message: "person"}, eventlog.TypeAnalysis, false},
		{"lower case", RoverEvent{RoverID: 1, EventType: "camera", Message: "frame"}, eventlog.TypeCamera, false},
		{"unknown type", RoverEvent{RoverID: 1, EventType: "DEBUG", Message: "x"}, "", true},
		{"empty message", RoverEvent{RoverID: 1, EventType: "STATUS"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.in.ToEvent()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && e.Type != tt.want {
				t.Errorf("type = %s, want %s", e.Type, tt.want)
			}
		})
	}
}

func TestRoverEvent_WireShape(t *testing.T) {
	e := eventlog.Event{
		RoverID:   4,
		Type:      eventlog.TypeWarning,
		Message:   "Obstacle detected at 12.5cm",
		Timestamp: time.Unix(1700000000, 0),
	}
	data, err := json.Marshal(FromEvent(e))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"rover_id":4,"event_type":"WARNING","message":"Obstacle detected at 12.5cm","timestamp":1700000000}`
	if string(data) != want {
		t.Errorf("json = %s\nwant   %s", data, want)
	}
}

func TestHeartbeat_ToHeartbeat(t *testing.T) {
	var hb Heartbeat
	body := `{"status":"ok","timestamp":1700000000,"rover_id":3,"rover_name":"rover_3","battery":76}`
	if err := json.Unmarshal([]byte(body), &hb); err != nil {
		t.Fatal(err)
	}
	got, err := hb.ToHeartbeat()
	if err != nil {
		t.Fatalf("ToHeartbeat() error = %v", err)
	}
	if got.RoverID != 3 || got.Battery != 76 || !got.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("heartbeat = %+v", got)
	}

	back := FromHeartbeat(got)
	if back.RoverName != "rover_3" {
		t.Errorf("round trip name = %q", back.RoverName)
	}

	if _, err := (Heartbeat{Status: "ok", Battery: 101}).ToHeartbeat(); err == nil {
		t.Error("battery 101 accepted")
	}
	if _, err := (Heartbeat{Battery: 50}).ToHeartbeat(); err == nil {
		t.Error("missing status accepted")
	}
}

func TestFromStatus_NullDistance(t *testing.T) {
	s := rover.Status{RoverID: 1, Mode: rover.ModeManual, Timestamp: time.Unix(1700000000, 0)}
	data, err := json.Marshal(FromStatus(s))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"distance":null`) {
		t.Errorf("json = %s, want null distance", data)
	}

	d := 33.5
	s.Distance = &d
	data, _ = json.Marshal(FromStatus(s))
	if !strings.Contains(string(data), `"distance":33.5`) {
		t.Errorf("json = %s, want distance 33.5", data)
	}
}

func TestFromPage(t *testing.T) {
	p := FromPage(eventlog.Page{Events: []eventlog.Event{}, Total: 0})
	data, _ := json.Marshal(p)
	if string(data) != `{"events":[],"total":0,"has_more":false}` {
		t.Errorf("empty page json = %s", data)
	}
}

func TestSnapshotRecords(t *testing.T) {
	taken := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

	ok := NewSnapshotResult("snapshot_20240506_070809.jpg", taken)
	if !ok.Success || ok.Timestamp != "2024-05-06T07:08:09" {
		t.Errorf("result = %+v", ok)
	}

	fail := SnapshotFailure(errors.New("camera offline"))
	data, _ := json.Marshal(fail)
	if string(data) != `{"success":false,"error":"camera offline"}` {
		t.Errorf("failure json = %s", data)
	}

	info := NewSnapshotInfo("snapshot_20240506_070809.jpg", taken)
	if info.Timestamp != "2024-05-06T07:08:09" {
		t.Errorf("info timestamp = %s", info.Timestamp)
	}
}
