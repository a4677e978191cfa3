// Package hub streams collection events to Server-Sent Events clients.
//
// Each event is written as a named SSE event with a monotonically
// increasing id:
//
//	id: 7
//	event: collection_completed
//	data: {"type":"collection_completed","device":"sw1",...}
//
// A client may subscribe to a single device with ?device=<name>.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// message is one encoded event waiting to be fanned out
type message struct {
	device string
	frame  []byte
}

type client struct {
	id     string
	device string // empty receives every device
	frames chan []byte
}

func (c *client) wants(m message) bool {
	return c.device == "" || m.device == "" || c.device == m.device
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan message
	done       chan struct{}
	seq        uint64
	keepAlive  time.Duration
	log        *logrus.Entry
}

// New creates a new Hub
func New(log *logrus.Entry) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		keepAlive:  30 * time.Second,
		log:        log,
	}
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.frames)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"client": c.id, "device": c.device, "total": total}).Debug("SSE client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.frames)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.WithFields(logrus.Fields{"client": c.id, "total": total}).Debug("SSE client disconnected")

		case m := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if !c.wants(m) {
					continue
				}
				select {
				case c.frames <- m.frame:
				default:
					h.log.WithField("client", c.id).Warn("SSE client is slow, skipping event")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues event under the SSE event name. device scopes it for
// filtered clients; an empty device reaches everyone.
func (h *Hub) Broadcast(name, device string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).WithField("event", name).Error("Failed to marshal event")
		return
	}

	h.mu.Lock()
	h.seq++
	id := h.seq
	h.mu.Unlock()

	m := message{
		device: device,
		frame:  []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, name, data)),
	}
	select {
	case h.broadcast <- m:
	default:
		h.log.WithField("event", name).Warn("Broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP streams events until the client goes away or the hub stops
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := &client{
		id:     uuid.NewString(),
		device: r.URL.Query().Get("device"),
		frames: make(chan []byte, 64),
	}

	select {
	case h.register <- c:
	case <-h.done:
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.frames:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
