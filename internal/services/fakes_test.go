package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/room"
)

type memStore struct {
	mu       sync.Mutex
	rooms    map[uuid.UUID]room.Room
	messages []room.Message
	chars    map[uuid.UUID]*models.Character
	saveErr  error
	msgErr   error
}

func newMemStore() *memStore {
	return &memStore{
		rooms: make(map[uuid.UUID]room.Room),
		chars: make(map[uuid.UUID]*models.Character),
	}
}

func (m *memStore) SaveRoom(_ context.Context, r room.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rooms[r.ID] = r.Clone()
	return nil
}

func (m *memStore) LoadActiveRooms(context.Context) ([]room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []room.Room
	for _, r := range m.rooms {
		if r.Status != room.StatusEnded {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *memStore) SaveMessage(_ context.Context, msg room.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.msgErr != nil {
		return m.msgErr
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) RoomMessages(_ context.Context, roomID uuid.UUID, limit int, _ *uuid.UUID) ([]room.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []room.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) GetCharacter(_ context.Context, id uuid.UUID) (*models.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chars[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c, nil
}

func (m *memStore) addCharacter(owner uuid.UUID, name string) uuid.UUID {
	c := &models.Character{ID: uuid.New(), UserID: owner, Name: name, Occupation: "Antiquarian", Power: 50, Constitution: 50, Size: 50}
	c.Derive()
	m.mu.Lock()
	m.chars[c.ID] = c
	m.mu.Unlock()
	return c.ID
}

func (m *memStore) saved(id uuid.UUID) (room.Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

type recHub struct {
	mu      sync.Mutex
	events  map[string][]room.Event
	dropped []string
}

func newRecHub() *recHub {
	return &recHub{events: make(map[string][]room.Event)}
}

func (h *recHub) Publish(channel string, ev room.Event) {
	h.mu.Lock()
	h.events[channel] = append(h.events[channel], ev)
	h.mu.Unlock()
}

func (h *recHub) Drop(channel string) {
	h.mu.Lock()
	h.dropped = append(h.dropped, channel)
	h.mu.Unlock()
}

func (h *recHub) on(channel string) []room.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]room.Event(nil), h.events[channel]...)
}

func (h *recHub) texts(roomID uuid.UUID) []string {
	var out []string
	for _, ev := range h.on(room.MessageChannel(roomID)) {
		out = append(out, ev.Message.Content)
	}
	return out
}

type recNarrator struct {
	mu       sync.Mutex
	triggers []narration.Trigger
}

func (n *recNarrator) Dispatch(t narration.Trigger) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.triggers = append(n.triggers, t)
	return true
}

func (n *recNarrator) all() []narration.Trigger {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]narration.Trigger(nil), n.triggers...)
}

var errStoreDown = errors.New("store down")
