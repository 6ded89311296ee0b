package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/infra/observability"
)

// ─── Change Feed ────────────────────────────────────────────────────────────
// GET /api/events streams every committed ledger change as a server-sent
// event named after the change kind:
//
//	event: work_session.created
//	data: {"kind":"work_session.created","id":"…","delta":"183","balance":"183",…}

// EventHub fans ledger change events out to connected clients.
type EventHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[chan []byte]struct{}),
	}
}

// Broadcast sends an event to every client. Slow clients miss events
// rather than block the ledger.
func (h *EventHub) Broadcast(ev ledger.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Kind, data))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a client. Returns the channel and an unsubscribe func.
func (h *EventHub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.EventSubscribers.Set(float64(n))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			n := len(h.clients)
			h.mu.Unlock()
			observability.EventSubscribers.Set(float64(n))
		})
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleSSE serves the change feed until the client goes away.
func (h *EventHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, unsub := h.Subscribe()
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-ch:
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
