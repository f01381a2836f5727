// Package events streams network changes to HTTP clients as Server-Sent
// Events.
package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types published by the network service.
const (
	PersonAdded       = "person.added"
	PersonRemoved     = "person.removed"
	ConnectionAdded   = "connection.added"
	ConnectionRemoved = "connection.removed"
	NetworkLoaded     = "network.loaded"
	NetworkSaved      = "network.saved"

	streamOpened = "connected"
)

// Event is one message on the stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Publisher receives network changes.
type Publisher interface {
	Publish(eventType string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// Nop returns a Publisher that drops everything.
func Nop() Publisher { return nopPublisher{} }

// Hub fans events out to connected SSE clients.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	closed    bool
	keepAlive time.Duration
	logger    *zap.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

func WithLogger(l *zap.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithKeepAlive sets the ping interval. Zero disables pings.
func WithKeepAlive(d time.Duration) HubOption {
	return func(h *Hub) { h.keepAlive = d }
}

// NewHub creates an open hub with a 30s keepalive.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:   make(map[*Client]struct{}),
		keepAlive: 30 * time.Second,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Client is a single SSE connection.
type Client struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
}

func newClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &Client{
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// write sends raw SSE text unless the client is already gone.
func (c *Client) write(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
	}
	fmt.Fprintf(c.writer, format, args...)
	c.flusher.Flush()
}

func (c *Client) send(data []byte) { c.write("data: %s\n\n", data) }

func (c *Client) ping() { c.write(": ping\n\n") }

func (c *Client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.done)
}

func (c *Client) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.ping()
		}
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.stop()
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("event encode failed", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.send(data)
	}
}

// Publish implements Publisher.
func (h *Hub) Publish(eventType string, data any) {
	h.Broadcast(&Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data})
}

// Close disconnects every client and rejects new ones. Open streams
// return, so an http.Server can finish shutting down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
}

// ServeHTTP streams events until the client goes away or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client, err := newClient(w)
	if err != nil {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if !h.register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer h.unregister(client)

	// streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h.logger.Debug("event client connected", zap.String("remote", r.RemoteAddr))
	data, _ := json.Marshal(&Event{Type: streamOpened, Timestamp: time.Now().UTC()})
	client.send(data)

	if h.keepAlive > 0 {
		go client.keepAlive(h.keepAlive)
	}

	select {
	case <-r.Context().Done():
	case <-client.done:
	}
	h.logger.Debug("event client disconnected", zap.String("remote", r.RemoteAddr))
}
