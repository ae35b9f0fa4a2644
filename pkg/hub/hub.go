package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/internal/metrics"
)

// DefaultInterval is the push period used when New is given zero.
const DefaultInterval = 5 * time.Second

// Hub maintains the set of active subscribers.
//
// The client map is only touched to add, remove or count; delivery happens
// in each client's own goroutine, so a slow or dead subscriber never holds
// up the others.
type Hub struct {
	source   LatestSource
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// New creates a hub that pushes source's latest event every interval.
func New(source LatestSource, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Hub{
		source:   source,
		interval: interval,
		log:      log.Component("hub"),
		clients:  make(map[*Client]struct{}),
	}
}

// Interval returns the push period.
func (h *Hub) Interval() time.Duration {
	return h.interval
}

// Serve registers conn as a subscriber and blocks until it disconnects or
// the hub is closed. Call it from the websocket handler.
func (h *Hub) Serve(conn Conn) {
	c := newClient(h, conn)
	if !h.add(c) {
		conn.Close()
		return
	}
	c.run()
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(count))
	h.log.Info("subscriber connected", "client", c.id, "total", count)
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.Subscribers.Set(float64(count))
		h.log.Info("subscriber disconnected", "client", c.id, "remaining", count)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
}

func newClientID() string {
	return uuid.NewString()
}
