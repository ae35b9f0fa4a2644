package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rover/pkg/eventlog"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// fakeConn is an in-memory websocket. ReadMessage blocks until Close.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	pings    int
	closes   int
	failNext bool

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("use of closed connection")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.closed:
		return errors.New("write on closed connection")
	default:
	}
	if f.failNext {
		return errors.New("broken pipe")
	}
	switch messageType {
	case websocket.TextMessage:
		f.frames = append(f.frames, append([]byte(nil), data...))
	case websocket.PingMessage:
		f.pings++
	case websocket.CloseMessage:
		f.closes++
	}
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) breakPipe() {
	f.mu.Lock()
	f.failNext = true
	f.mu.Unlock()
}

func (f *fakeConn) received() []protocol.RoverEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.RoverEvent, 0, len(f.frames))
	for _, data := range f.frames {
		var e protocol.RoverEvent
		if err := json.Unmarshal(data, &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func serve(h *Hub, conn *fakeConn) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Serve(conn)
	}()
	return done
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PushesLatestOnly(t *testing.T) {
	events := eventlog.New(10)
	h := New(events, 20*time.Millisecond)

	events.Append(eventlog.NewEvent(1, eventlog.TypeStatus, "first"))
	events.Append(eventlog.NewEvent(1, eventlog.TypeStatus, "second"))

	conn := newFakeConn()
	done := serve(h, conn)

	waitFor(t, func() bool { return len(conn.received()) >= 2 })
	for _, e := range conn.received() {
		if e.Message != "second" {
			t.Errorf("pushed %q, want only the latest event", e.Message)
		}
	}

	events.Append(eventlog.NewEvent(1, eventlog.TypeWarning, "third"))
	waitFor(t, func() bool {
		got := conn.received()
		return got[len(got)-1].Message == "third"
	})

	h.Close()
	<-done
}

func TestHub_EmptyLogSendsNothing(t *testing.T) {
	h := New(eventlog.New(10), 10*time.Millisecond)
	conn := newFakeConn()
	done := serve(h, conn)

	waitFor(t, func() bool { return h.ClientCount() == 1 })
	time.Sleep(50 * time.Millisecond)
	if n := len(conn.received()); n != 0 {
		t.Errorf("frames = %d, want 0", n)
	}

	h.Close()
	<-done
}

func TestHub_WriteFailureRemovesOnlyThatClient(t *testing.T) {
	events := eventlog.New(10)
	events.Append(eventlog.NewEvent(1, eventlog.TypeStatus, "hello"))
	h := New(events, 10*time.Millisecond)

	healthy, broken := newFakeConn(), newFakeConn()
	doneHealthy := serve(h, healthy)
	doneBroken := serve(h, broken)

	waitFor(t, func() bool { return h.ClientCount() == 2 })
	broken.breakPipe()

	<-doneBroken
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	before := len(healthy.received())
	waitFor(t, func() bool { return len(healthy.received()) > before })

	h.Close()
	<-doneHealthy
	if h.ClientCount() != 0 {
		t.Errorf("clients after close = %d", h.ClientCount())
	}
}

func TestHub_PeerDisconnect(t *testing.T) {
	h := New(eventlog.New(10), time.Second)
	conn := newFakeConn()
	done := serve(h, conn)

	waitFor(t, func() bool { return h.ClientCount() == 1 })
	conn.Close()
	<-done

	if h.ClientCount() != 0 {
		t.Errorf("clients = %d, want 0", h.ClientCount())
	}
}

func TestHub_CloseSendsCloseFrameAndRejectsNewClients(t *testing.T) {
	h := New(eventlog.New(10), time.Second)
	conn := newFakeConn()
	done := serve(h, conn)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Close()
	<-done

	conn.mu.Lock()
	closes := conn.closes
	conn.mu.Unlock()
	if closes != 1 {
		t.Errorf("close frames = %d, want 1", closes)
	}

	late := newFakeConn()
	<-serve(h, late)
	select {
	case <-late.closed:
	default:
		t.Error("connection accepted after Close")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	if got := New(eventlog.New(1), 0).Interval(); got != DefaultInterval {
		t.Errorf("interval = %v, want %v", got, DefaultInterval)
	}
}
