// Package hub pushes the rover's most recent event to websocket observers.
//
// Delivery is deliberately lossy: each subscriber's write pump wakes on its
// own ticker and sends only whatever event is newest at that moment. Events
// appended between ticks are never queued for a subscriber.
package hub

import (
	"encoding/json"
	"time"

	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// LatestSource provides the newest event, if any. *eventlog.Log satisfies it.
type LatestSource interface {
	Latest() (eventlog.Event, bool)
}

// Conn is the subset of a websocket connection the hub uses.
// *websocket.Conn from gofiber/websocket satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// encode renders an event as the JSON text frame observers receive.
func encode(e eventlog.Event) ([]byte, error) {
	return json.Marshal(protocol.FromEvent(e))
}
