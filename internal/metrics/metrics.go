// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every go-rover collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var (
	// CommandsTotal counts external commands by kind (move/camera/mode) and result.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_commands_total",
			Help: "External commands handled, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// EventsTotal counts events appended to the event log by type.
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_events_total",
			Help: "Events appended to the event log, by type.",
		},
		[]string{"type"},
	)

	// DriveDecisions counts autonomous drive cycles by distance band.
	// band: clear, caution, danger, sensor_error
	DriveDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_drive_decisions_total",
			Help: "Autonomous drive cycles, by distance band.",
		},
		[]string{"band"},
	)

	// Distance is the last distance reading in centimeters.
	Distance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rover_distance_cm",
		Help: "Last distance sensor reading in centimeters.",
	})

	// Battery is the simulated battery level in percent.
	Battery = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rover_battery_percent",
		Help: "Battery level in percent.",
	})

	// Autonomous is 1 while the rover is in autonomous mode.
	Autonomous = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rover_autonomous",
		Help: "1 when the rover is in autonomous mode, 0 in manual mode.",
	})

	// Subscribers is the number of connected push-stream observers.
	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rover_event_subscribers",
		Help: "Connected event stream subscribers.",
	})

	// BroadcastsTotal counts push deliveries by result (sent/failed).
	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_broadcasts_total",
			Help: "Latest-event deliveries to subscribers, by result.",
		},
		[]string{"result"},
	)

	// UplinkTotal counts uplink publishes by record kind and result.
	UplinkTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rover_uplink_total",
			Help: "Records forwarded to the ground station, by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CommandsTotal,
		EventsTotal,
		DriveDecisions,
		Distance,
		Battery,
		Autonomous,
		Subscribers,
		BroadcastsTotal,
		UplinkTotal,
	)
}

// Result maps a boolean outcome to a label value.
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}
