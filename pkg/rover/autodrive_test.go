package rover

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-rover/pkg/eventlog"
)

func TestClassify(t *testing.T) {
	s := DefaultSettings()
	tests := []struct {
		d    float64
		want band
	}{
		{100, bandClear},
		{40, bandClear},
		{39.99, bandCaution},
		{20, bandCaution},
		{19.99, bandDanger},
		{0, bandDanger},
	}
	for _, tt := range tests {
		if got := classify(tt.d, s); got != tt.want {
			t.Errorf("classify(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestDriveCycle_Decisions(t *testing.T) {
	tests := []struct {
		name string
		cm   float64
		want []string
	}{
		{"clear at safe distance", 40, []string{"steer[0]", "forward[15]"}},
		{"clear far away", 250, []string{"steer[0]", "forward[15]"}},
		{"caution at danger distance", 20, []string{"steer[30]", "forward[15]"}},
		{"caution just under safe", 39, []string{"steer[30]", "forward[15]"}},
		{"danger backs up", 19, []string{"steer[-30]", "backward[7]", "backward[7]", "backward[7]", "forward[15]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := newMockActuator()
			c := newTestCoordinator(act, sensorOf(reading{cm: tt.cm}), ModeAutonomous)

			c.driveCycle(context.Background())

			if got := act.names(); !equalStrings(got, tt.want) {
				t.Errorf("calls = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDriveCycle_ObstacleWarningAndPulseSpacing(t *testing.T) {
	act := newMockActuator()
	c := newTestCoordinator(act, sensorOf(reading{cm: 12.345}), ModeAutonomous)
	delay := c.Settings().BackupStepDelay

	c.driveCycle(context.Background())

	warnings := eventsOfType(c, eventlog.TypeWarning)
	if len(warnings) != 1 || warnings[0].Message != "Obstacle detected at 12.35cm" {
		t.Fatalf("WARNING events = %v", warnings)
	}

	var pulses []call
	for _, cl := range act.snapshot() {
		if cl.name == "backward" {
			pulses = append(pulses, cl)
		}
	}
	if len(pulses) != 3 {
		t.Fatalf("backward pulses = %d, want 3", len(pulses))
	}
	for i := 1; i < len(pulses); i++ {
		if gap := pulses[i].at.Sub(pulses[i-1].at); gap < delay {
			t.Errorf("gap between pulse %d and %d = %v, want >= %v", i-1, i, gap, delay)
		}
	}
}

func TestDriveCycle_ObstacleWarningWholeReading(t *testing.T) {
	act := newMockActuator()
	c := newTestCoordinator(act, sensorOf(reading{cm: 15}), ModeAutonomous)

	c.driveCycle(context.Background())

	warnings := eventsOfType(c, eventlog.TypeWarning)
	if len(warnings) != 1 || warnings[0].Message != "Obstacle detected at 15.0cm" {
		t.Fatalf("WARNING events = %v", warnings)
	}
}

func TestFormatCM(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{15, "15.0"},
		{12.35, "12.35"},
		{0.5, "0.5"},
		{19.9, "19.9"},
	}
	for _, tt := range tests {
		if got := formatCM(tt.in); got != tt.want {
			t.Errorf("formatCM(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDriveCycle_IdleInManual(t *testing.T) {
	act := newMockActuator()
	sensor := sensorOf(reading{cm: 5})
	c := newTestCoordinator(act, sensor, ModeManual)

	c.driveCycle(context.Background())

	if n := len(act.snapshot()); n != 0 {
		t.Errorf("actuation calls = %d, want 0", n)
	}
	if sensor.count() != 0 {
		t.Errorf("sensor reads = %d, want 0", sensor.count())
	}
}

func TestDriveCycle_SensorFailure(t *testing.T) {
	act := newMockActuator()
	c := newTestCoordinator(act, sensorOf(reading{err: errNoEcho}), ModeAutonomous)

	c.driveCycle(context.Background())

	if n := len(act.snapshot()); n != 0 {
		t.Errorf("actuation calls = %d, want 0", n)
	}
	errs := eventsOfType(c, eventlog.TypeError)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "no echo") {
		t.Errorf("ERROR events = %v", errs)
	}
}

func TestDriveLoop_ContinuesAfterSensorFailure(t *testing.T) {
	act := newMockActuator()
	sensor := sensorOf(reading{cm: 15}, reading{err: errNoEcho}, reading{cm: 100})
	c := newTestCoordinator(act, sensor, ModeAutonomous)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.driveLoop(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sensor.count() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if sensor.count() < 4 {
		t.Fatalf("sensor reads = %d, loop stalled", sensor.count())
	}
	if n := len(eventsOfType(c, eventlog.TypeError)); n != 1 {
		t.Errorf("ERROR events = %d, want 1", n)
	}

	// After the failed read the loop drove straight on the clear reading.
	calls := act.names()
	tail := calls[len(calls)-2:]
	if !equalStrings(tail, []string{"steer[0]", "forward[15]"}) {
		t.Errorf("last calls = %v, want clear-band drive", tail)
	}
}

func TestBackUp_AbandonedOnManualTakeover(t *testing.T) {
	act := newMockActuator()
	c := newTestCoordinator(act, sensorOf(reading{cm: 5}), ModeAutonomous)
	c.settings.BackupStepDelay = 40 * time.Millisecond

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.driveCycle(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	if !c.SetMode(context.Background(), "manual") {
		t.Fatal("SetMode(manual) = false")
	}
	<-done

	calls := act.names()
	stopAt := -1
	for i, name := range calls {
		if name == "stop[]" {
			stopAt = i
		}
	}
	if stopAt < 0 {
		t.Fatalf("no stop in %v", calls)
	}
	for _, name := range calls[stopAt+1:] {
		if strings.HasPrefix(name, "forward") || strings.HasPrefix(name, "backward") {
			t.Errorf("drive call %s after manual takeover: %v", name, calls)
		}
	}
}

func TestBackUp_AbandonedOnShutdown(t *testing.T) {
	act := newMockActuator()
	c := newTestCoordinator(act, sensorOf(reading{cm: 5}), ModeAutonomous)
	c.settings.BackupStepDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.driveCycle(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	cancel()
	<-done

	if waited := time.Since(start); waited > 500*time.Millisecond {
		t.Errorf("backup ignored cancellation for %v", waited)
	}
	for _, name := range act.names() {
		if strings.HasPrefix(name, "forward") {
			t.Errorf("resumed forward after shutdown: %v", act.names())
		}
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("sleepCtx with live context = false")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Hour) {
		t.Error("sleepCtx with cancelled context = true")
	}
	if sleepCtx(ctx, 0) {
		t.Error("sleepCtx(0) with cancelled context = true")
	}
}
