// Package monitor fans session lifecycle events out to operator subscribers.
package monitor

import (
	"sync"
	"time"
)

// EventKind labels a session lifecycle transition.
type EventKind string

const (
	KindStarted   EventKind = "started"
	KindHello     EventKind = "hello"
	KindSolved    EventKind = "solved"
	KindCompleted EventKind = "completed"
	KindAborted   EventKind = "aborted"
)

// Event is one observation of a session, safe to serialize as-is.
type Event struct {
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name,omitempty"`
	Kind      EventKind `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Hub broadcasts events to all current subscribers. A nil Hub is valid and
// drops everything, so sessions never need to care whether monitoring is on.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of future events. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking; when a
// subscriber's buffer is full the oldest event is dropped to make room, so
// slow operators cannot stall sessions.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
