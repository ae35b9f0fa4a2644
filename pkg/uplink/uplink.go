// Package uplink forwards the rover's own events and heartbeats to a ground
// station, either another instance of this service over HTTP or an MQTT
// broker.
package uplink

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-rover/pkg/protocol"
)

// Kinds of uplink.
const (
	KindHTTP = "http"
	KindMQTT = "mqtt"
)

// Publisher delivers records to the ground station.
type Publisher interface {
	PublishEvent(ctx context.Context, e protocol.RoverEvent) error
	PublishHeartbeat(ctx context.Context, hb protocol.Heartbeat) error
	Close(ctx context.Context) error
}

// Config selects and configures a publisher.
type Config struct {
	Kind     string
	URL      string
	Topic    string
	ClientID string
	Username string
	Password string
	Timeout  time.Duration
}

// New returns the publisher for cfg.Kind. An MQTT publisher starts
// connecting in the background and does not wait for the broker.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Kind {
	case KindHTTP:
		return NewHTTPPublisher(cfg.URL, cfg.Timeout), nil
	case KindMQTT:
		return NewMQTTPublisher(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown uplink kind %q", cfg.Kind)
	}
}
