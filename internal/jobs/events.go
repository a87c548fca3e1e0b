package jobs

import "sync"

// EventType identifies the kind of a job lifecycle event.
type EventType string

const (
	EventCreated   EventType = "created"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one entry on the broadcast stream. It carries the full job
// snapshot at emission time; consumers filter by Job.ID themselves.
type Event struct {
	Type EventType `json:"type"`
	Job  Job       `json:"job"`
}

// subscriberBuffer bounds each subscriber's channel. A consumer that falls
// this far behind starts losing events; there is no replay.
const subscriberBuffer = 64

// Hub fans job events out to live subscribers. Events published while a
// subscriber's buffer is full are dropped for that subscriber rather than
// blocking the scheduler.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new observer. The returned cancel function must be
// called when the observer is done; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish broadcasts an event to all current subscribers.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow consumer; drop rather than block.
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
