package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/gm-table/internal/room"
)

// channel is one named broadcast stream. Publishing holds mu for the whole
// fan-out so every subscriber sees events in seq order.
type channel struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uuid.UUID]*Client
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]*Client
	channels map[string]*channel

	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[uuid.UUID]*Client),
		channels: make(map[string]*channel),
		log:      log.With().Str("component", "hub").Logger(),
	}
}

// Run blocks until ctx is done and then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.Stop()
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.channels = make(map[string]*channel)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.log.Info().Str("client_id", c.ID.String()).Str("user_id", c.UserID.String()).Msg("client registered")
}

// Unregister removes c from every channel and closes its queue. It is safe
// to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.close()
	for _, name := range c.Channels() {
		h.Unsubscribe(c, name)
	}

	if ok {
		h.log.Info().Str("client_id", c.ID.String()).Str("user_id", c.UserID.String()).Msg("client unregistered")
	}
}

func (h *Hub) channel(name string, create bool) *channel {
	h.mu.RLock()
	ch, ok := h.channels[name]
	h.mu.RUnlock()
	if ok || !create {
		return ch
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok = h.channels[name]; !ok {
		ch = &channel{subs: make(map[uuid.UUID]*Client)}
		h.channels[name] = ch
	}
	return ch
}

// Subscribe adds c to the named channel. A non-nil snapshot is queued to c
// as a TypeSnapshot frame stamped with the channel's current seq, ahead of
// any event published afterwards.
func (h *Hub) Subscribe(c *Client, name string, snapshot *room.Event) error {
	var frame []byte
	ch := h.channel(name, true)

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if snapshot != nil {
		var err error
		frame, err = encode(TypeSnapshot, name, snapshot.RoomID, ch.seq, snapshot)
		if err != nil {
			return err
		}
	}
	_, already := ch.subs[c.ID]
	if !c.track(name) {
		return ErrClientClosed
	}
	ch.subs[c.ID] = c

	if frame != nil && !c.enqueue(frame) {
		if !already {
			delete(ch.subs, c.ID)
			c.untrack(name)
		}
		return ErrClientQueueFull
	}
	return nil
}

func (h *Hub) Unsubscribe(c *Client, name string) {
	c.untrack(name)

	ch := h.channel(name, false)
	if ch == nil {
		return
	}
	ch.mu.Lock()
	delete(ch.subs, c.ID)
	ch.mu.Unlock()
}

// Publish implements room.Publisher. A subscriber whose queue is full is
// disconnected rather than skipped, so every connected subscriber has seen
// every event of the channel.
func (h *Hub) Publish(name string, ev room.Event) {
	ch := h.channel(name, true)

	ch.mu.Lock()
	ch.seq++
	frame, err := encode(MessageType(ev.Type), name, ev.RoomID, ch.seq, ev)
	if err != nil {
		ch.mu.Unlock()
		h.log.Error().Err(err).Str("channel", name).Msg("encode event")
		return
	}

	var slow []*Client
	for _, c := range ch.subs {
		if !c.enqueue(frame) {
			delete(ch.subs, c.ID)
			slow = append(slow, c)
		}
	}
	ch.mu.Unlock()

	for _, c := range slow {
		h.log.Warn().
			Str("client_id", c.ID.String()).
			Str("user_id", c.UserID.String()).
			Str("channel", name).
			Msg("slow consumer disconnected")
		h.Unregister(c)
	}
}

// Drop forgets a channel. Its subscribers stay connected.
func (h *Hub) Drop(name string) {
	h.mu.Lock()
	ch, ok := h.channels[name]
	delete(h.channels, name)
	h.mu.Unlock()
	if !ok {
		return
	}

	ch.mu.Lock()
	subs := make([]*Client, 0, len(ch.subs))
	for _, c := range ch.subs {
		subs = append(subs, c)
	}
	ch.subs = make(map[uuid.UUID]*Client)
	ch.mu.Unlock()

	for _, c := range subs {
		c.untrack(name)
	}
}

// Subscribers reports how many clients listen on a channel.
func (h *Hub) Subscribers(name string) int {
	ch := h.channel(name, false)
	if ch == nil {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subs)
}

// Online reports the number of registered connections.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(t MessageType, name string, roomID uuid.UUID, seq uint64, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Type:      t,
		Channel:   name,
		RoomID:    &roomID,
		Seq:       seq,
		Data:      data,
		Timestamp: time.Now(),
	})
}
