package eventlog

import "sync"

// DefaultCapacity is the number of events kept when no capacity is given.
const DefaultCapacity = 500

// Log is a fixed-capacity ring of events in insertion order.
// When full, each Append evicts the oldest entry.
// All methods are safe for concurrent use.
type Log struct {
	mu    sync.RWMutex
	buf   []Event
	head  int // index of the oldest entry
	count int
}

// New creates a log holding at most capacity events.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Event, capacity)}
}

// Append adds e, evicting the oldest event if the log is full.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < len(l.buf) {
		l.buf[(l.head+l.count)%len(l.buf)] = e
		l.count++
		return
	}
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
}

// Len returns the number of events currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Cap returns the log capacity.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Latest returns the most recently appended event.
func (l *Log) Latest() (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.count == 0 {
		return Event{}, false
	}
	return l.at(l.count - 1), true
}

// Snapshot returns a copy of all events, oldest first.
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, l.count)
	for i := range out {
		out[i] = l.at(i)
	}
	return out
}

// Page is one window of the newest-first ordering.
type Page struct {
	Events  []Event
	Total   int
	HasMore bool
}

// Page returns up to limit events starting at offset start of the
// newest-first ordering. A start past the end yields an empty page.
func (l *Log) Page(start, limit int) Page {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if start < 0 {
		start = 0
	}
	// Compare against the remaining count; start+limit may overflow.
	remaining := l.count - start
	p := Page{
		Events:  []Event{},
		Total:   l.count,
		HasMore: limit > 0 && remaining > 0 && limit < remaining,
	}
	if limit <= 0 || remaining <= 0 {
		return p
	}

	end := l.count
	if limit < remaining {
		end = start + limit
	}
	p.Events = make([]Event, 0, end-start)
	for i := start; i < end; i++ {
		p.Events = append(p.Events, l.at(l.count-1-i))
	}
	return p
}

// at returns the i-th oldest event. Caller holds the lock.
func (l *Log) at(i int) Event {
	return l.buf[(l.head+i)%len(l.buf)]
}
