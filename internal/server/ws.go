package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/snooow1029/paper-master/internal/jobs"
)

// wsHub fans scheduler events out to connected websocket clients. A
// client that cannot keep up is dropped rather than holding the
// broadcast back.
type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	cancel  func()
	done    chan struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
}

// start relays events from the scheduler subscription until stop is
// called.
func (h *wsHub) start(events <-chan jobs.Event, cancel func()) {
	h.cancel = cancel
	go func() {
		defer close(h.done)
		for ev := range events {
			h.broadcast(ev)
		}
	}()
}

func (h *wsHub) stop() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

func (h *wsHub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *wsHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *wsHub) broadcast(ev jobs.Event) {
	msg, err := json.Marshal(map[string]any{
		"type": ev.Type,
		"job":  ev.Job,
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// handleWebSocket upgrades the connection and streams every job update
// until the client disconnects. The client receives the current job
// list on connect so it does not have to reconcile a cold start.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade failed: %v", err)
		return
	}

	initial, err := json.Marshal(map[string]any{
		"type": "initial_jobs",
		"jobs": s.scheduler.List(),
	})
	if err == nil {
		conn.WriteMessage(websocket.TextMessage, initial)
	}

	s.ws.register(conn)

	// Drain client messages to detect disconnects; inbound payloads
	// are ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.ws.unregister(conn)
				return
			}
		}
	}()
}
