package uplink

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-rover/internal/httpc"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// HTTPPublisher posts records to the ingest routes of a ground station
// running this service.
type HTTPPublisher struct {
	base   string
	client *http.Client
}

// NewHTTPPublisher creates a publisher for the station at baseURL.
func NewHTTPPublisher(baseURL string, timeout time.Duration) *HTTPPublisher {
	if timeout <= 0 {
		timeout = httpc.HardwareTimeout
	}
	return &HTTPPublisher{
		base:   strings.TrimRight(baseURL, "/"),
		client: httpc.NewClient(timeout),
	}
}

// PublishEvent posts to /events.
func (p *HTTPPublisher) PublishEvent(ctx context.Context, e protocol.RoverEvent) error {
	return p.post(ctx, "/events", e)
}

// PublishHeartbeat posts to /heartbeat.
func (p *HTTPPublisher) PublishHeartbeat(ctx context.Context, hb protocol.Heartbeat) error {
	return p.post(ctx, "/heartbeat", hb)
}

// Close releases idle connections.
func (p *HTTPPublisher) Close(context.Context) error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *HTTPPublisher) post(ctx context.Context, path string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return httpc.PostJSON(ctx, p.client, p.base+path, body)
}
