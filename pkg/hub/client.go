package hub

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/internal/metrics"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds what an observer may send us.
	maxMessageSize = 4 * 1024
)

// Client is one subscriber connection.
type Client struct {
	id   string
	hub  *Hub
	conn Conn

	done chan struct{}
	once sync.Once
}

func newClient(h *Hub, conn Conn) *Client {
	return &Client{
		id:   newClientID(),
		hub:  h,
		conn: conn,
		done: make(chan struct{}),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// run starts the write pump and blocks in the read pump.
func (c *Client) run() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	c.readPump()
	c.stop()
	wg.Wait()
	c.hub.remove(c)
}

// stop signals the write pump to send a close frame and hang up.
func (c *Client) stop() {
	c.once.Do(func() { close(c.done) })
}

// readPump discards inbound messages. It exists to process pongs and to
// notice the peer going away.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine that writes to the connection.
func (c *Client) writePump() {
	events := time.NewTicker(c.hub.interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		events.Stop()
		ping.Stop()
		c.conn.Close()
		c.hub.remove(c)
	}()

	if !c.pushLatest() {
		c.stop()
		return
	}

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-events.C:
			if !c.pushLatest() {
				c.stop()
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}
		}
	}
}

// pushLatest sends the newest event, if any. It reports false when the
// connection is no longer usable.
func (c *Client) pushLatest() bool {
	e, ok := c.hub.source.Latest()
	if !ok {
		return true
	}

	data, err := encode(e)
	if err != nil {
		c.hub.log.Error("encode event", "error", err)
		return true
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		metrics.BroadcastsTotal.WithLabelValues("failed").Inc()
		c.hub.log.Debug("push failed, dropping subscriber", "client", c.id, "error", err)
		return false
	}
	metrics.BroadcastsTotal.WithLabelValues("sent").Inc()
	return true
}
