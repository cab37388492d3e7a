// Package realtime fans out comment and reaction events to websocket clients
// subscribed to a topic such as "card:<id>".
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/cardshow/cardshow/internal/metrics"
	"github.com/gorilla/websocket"
)

// Message is the envelope of everything sent to a client.
type Message struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Authorizer decides whether a viewer may subscribe to a topic. viewerID is
// empty for anonymous connections.
type Authorizer func(viewerID, topic string) error

type Hub struct {
	mu        sync.RWMutex
	topics    map[string]map[*Client]struct{}
	clients   map[*Client]struct{}
	authorize Authorizer
	upgrader  websocket.Upgrader
}

// NewHub builds a hub. An empty allowedOrigins list accepts same-origin
// requests only.
func NewHub(authorize Authorizer, allowedOrigins []string) *Hub {
	h := &Hub{
		topics:    make(map[string]map[*Client]struct{}),
		clients:   make(map[*Client]struct{}),
		authorize: authorize,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") {
				return true
			}
			if slices.Contains(allowedOrigins, origin) {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
	return h
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, viewerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(h, conn, viewerID)
	h.register(c)

	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.RealtimeConnected()
}

// remove drops the client from every topic. Safe to call more than once.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		for topic := range c.topics {
			h.unsubscribeLocked(c, topic)
		}
	}
	h.mu.Unlock()

	if ok {
		c.close()
		metrics.RealtimeDisconnected()
	}
}

func (h *Hub) subscribe(c *Client, topic string) error {
	if h.authorize != nil {
		err := h.authorize(c.viewerID, topic)
		if err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// remove may have run while authorize was checking
	if _, ok := h.clients[c]; !ok {
		return errClientGone
	}
	if len(c.topics) >= maxTopicsPerClient {
		return errTooManyTopics
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
	c.topics[topic] = struct{}{}
	return nil
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	h.unsubscribeLocked(c, topic)
	h.mu.Unlock()
}

func (h *Hub) unsubscribeLocked(c *Client, topic string) {
	delete(c.topics, topic)
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// Publish sends an event to every subscriber of topic. Clients whose send
// buffer is full are disconnected.
func (h *Hub) Publish(topic, eventType string, data any) {
	payload, err := json.Marshal(Message{Type: eventType, Topic: topic, Data: data})
	if err != nil {
		slog.Error("realtime payload marshal failed", "error", err, "topic", topic)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.topics[topic] {
		if !c.enqueue(payload) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("realtime client too slow, dropping", "viewer_id", c.viewerID)
		h.remove(c)
	}
}

// Subscribers reports how many clients listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}
