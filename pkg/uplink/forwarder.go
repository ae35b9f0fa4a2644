package uplink

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/internal/metrics"
	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/rover"
)

const (
	// DefaultQueueSize bounds events waiting to be forwarded.
	DefaultQueueSize = 256
	// DefaultHeartbeatInterval is used when the forwarder is given zero.
	DefaultHeartbeatInterval = 10 * time.Second

	publishTimeout = 5 * time.Second
)

// HeartbeatSource produces this rover's heartbeat. *rover.Coordinator
// satisfies it.
type HeartbeatSource interface {
	Heartbeat() rover.Heartbeat
}

// Forwarder relays the rover's own events and a periodic heartbeat to a
// Publisher. Events are queued without blocking the caller; when the queue
// is full the event is dropped. Failures are logged, never recorded as
// events, so a broken uplink cannot feed itself.
type Forwarder struct {
	pub      Publisher
	source   HeartbeatSource
	roverID  int
	interval time.Duration
	queue    chan eventlog.Event
	log      *slog.Logger
}

// NewForwarder creates a forwarder for the rover with the given id. Events
// from other rovers (submitted through the ingest routes) are not relayed.
func NewForwarder(pub Publisher, source HeartbeatSource, roverID int, interval time.Duration) *Forwarder {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Forwarder{
		pub:      pub,
		source:   source,
		roverID:  roverID,
		interval: interval,
		queue:    make(chan eventlog.Event, DefaultQueueSize),
		log:      log.Component("uplink"),
	}
}

// Enqueue schedules e for forwarding. It never blocks; use it as an
// event observer.
func (f *Forwarder) Enqueue(e eventlog.Event) {
	if e.RoverID != f.roverID {
		return
	}
	select {
	case f.queue <- e:
	default:
		metrics.UplinkTotal.WithLabelValues("event", "dropped").Inc()
	}
}

// Run forwards until ctx is cancelled, then closes the publisher.
func (f *Forwarder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := f.pub.Close(closeCtx); err != nil {
			f.log.Warn("close uplink", "error", err)
		}
	}()

	f.sendHeartbeat(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-f.queue:
			f.sendEvent(ctx, e)
		case <-ticker.C:
			f.sendHeartbeat(ctx)
		}
	}
}

func (f *Forwarder) sendEvent(ctx context.Context, e eventlog.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := f.pub.PublishEvent(ctx, protocol.FromEvent(e))
	metrics.UplinkTotal.WithLabelValues("event", metrics.Result(err == nil)).Inc()
	if err != nil {
		f.log.Debug("forward event failed", "type", e.Type, "error", err)
	}
}

func (f *Forwarder) sendHeartbeat(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := f.pub.PublishHeartbeat(ctx, protocol.FromHeartbeat(f.source.Heartbeat()))
	metrics.UplinkTotal.WithLabelValues("heartbeat", metrics.Result(err == nil)).Inc()
	if err != nil {
		f.log.Warn("heartbeat uplink failed", "error", err)
	}
}
