package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	// sendBuffer bounds the frames queued for one client before it is
	// treated as a slow consumer.
	sendBuffer = 256
)

// ClientMessageHandler executes inbound actions other than ping.
type ClientMessageHandler interface {
	HandleMessage(client *Client, msg *Message) error
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Username string

	conn    *websocket.Conn
	hub     *Hub
	send    chan []byte
	limiter *rate.Limiter
	log     zerolog.Logger

	mu       sync.Mutex
	closed   bool
	channels map[string]struct{}
}

// NewClient wraps an upgraded connection. limiter throttles chat and dice
// actions; nil disables throttling.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, username string, limiter *rate.Limiter) *Client {
	id := uuid.New()
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
		limiter:  limiter,
		log:      hub.log.With().Str("client_id", id.String()).Logger(),
		channels: make(map[string]struct{}),
	}
}

// ReadPump reads frames until the connection fails, then unregisters the
// client.
func (c *Client) ReadPump(handler ClientMessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.SendError(&msg, ErrInvalidMessage)
			continue
		}

		if msg.Type == TypePing {
			c.Reply(&msg, TypePong, nil)
			continue
		}

		if err := handler.HandleMessage(c, &msg); err != nil {
			c.log.Debug().Err(err).Str("type", string(msg.Type)).Msg("action rejected")
			c.SendError(&msg, err)
		}
	}
}

// WritePump drains the send queue to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Allow reports whether another throttled action may run now.
func (c *Client) Allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// Reply answers req with a frame that echoes its request id and room.
func (c *Client) Reply(req *Message, t MessageType, data any) error {
	msg := Message{
		Type:      t,
		RoomID:    req.RoomID,
		RequestID: req.RequestID,
		Timestamp: time.Now(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = raw
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if !c.enqueue(frame) {
		return ErrClientQueueFull
	}
	return nil
}

func (c *Client) SendError(req *Message, err error) {
	c.Reply(req, TypeError, ErrorData{Code: codeOf(err), Error: err.Error()})
}

// Channels lists the channels the client is subscribed to.
func (c *Client) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.channels))
	for name := range c.channels {
		out = append(out, name)
	}
	return out
}

func (c *Client) Subscribed(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.channels[name]
	return ok
}

// enqueue reports false only when the queue is full. Frames for a closed
// client are discarded.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) track(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.channels[name] = struct{}{}
	return true
}

func (c *Client) untrack(name string) {
	c.mu.Lock()
	delete(c.channels, name)
	c.mu.Unlock()
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
