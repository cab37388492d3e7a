package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4096
	sendBuffer         = 64
	maxTopicsPerClient = 100
)

var (
	errTooManyTopics = errors.New("too many subscriptions")
	errClientGone    = errors.New("connection closed")
)

// request is what clients send: {"action":"subscribe","topic":"card:123"}.
type request struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	viewerID string
	send     chan []byte
	once     sync.Once
	done     chan struct{}

	// guarded by hub.mu
	topics map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, viewerID string) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		viewerID: viewerID,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		topics:   make(map[string]struct{}),
	}
}

// enqueue reports false when the client cannot keep up.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !c.enqueue(payload) {
		c.hub.remove(c)
	}
}

func (c *Client) readPump() {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("realtime read error", "error", err, "viewer_id", c.viewerID)
			}
			return
		}

		var req request
		err = json.Unmarshal(raw, &req)
		if err != nil {
			c.reply(Message{Type: "error", Error: "invalid message"})
			continue
		}

		switch req.Action {
		case "subscribe":
			if req.Topic == "" {
				c.reply(Message{Type: "error", Error: "topic is required"})
				continue
			}
			err = c.hub.subscribe(c, req.Topic)
			if err != nil {
				c.reply(Message{Type: "error", Topic: req.Topic, Error: err.Error()})
				continue
			}
			c.reply(Message{Type: "subscribed", Topic: req.Topic})
		case "unsubscribe":
			c.hub.unsubscribe(c, req.Topic)
			c.reply(Message{Type: "unsubscribed", Topic: req.Topic})
		case "ping":
			c.reply(Message{Type: "pong"})
		default:
			c.reply(Message{Type: "error", Error: "unknown action"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.TextMessage, msg)
			if err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}
