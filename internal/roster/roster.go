// Package roster keeps the authoritative in-memory view of live rooms,
// their members and character claims. Every mutation of one room runs in
// that room's exclusive scope; different rooms never contend.
package roster

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/room"
)

var ErrRoomExists = errors.New("room already registered")

type entry struct {
	mu      sync.Mutex
	room    room.Room
	removed bool
}

type Store struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*entry
}

func New() *Store {
	return &Store{rooms: make(map[uuid.UUID]*entry)}
}

// Add registers a live room. commit, when given, runs inside the new
// room's exclusive scope so it is ordered before any later Update.
func (s *Store) Add(r room.Room, commit func(r room.Room)) error {
	if !r.Live() {
		return room.ErrInvalidState
	}

	e := &entry{room: r.Clone()}
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	if _, ok := s.rooms[r.ID]; ok {
		s.mu.Unlock()
		return ErrRoomExists
	}
	s.rooms[r.ID] = e
	s.mu.Unlock()

	if commit != nil {
		commit(r.Clone())
	}
	return nil
}

func (s *Store) lookup(id uuid.UUID) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[id]
	return e, ok
}

// Update runs apply on a copy of the room inside the room's exclusive
// scope. If apply fails nothing changes. Otherwise the copy becomes the
// room state and commit, when given, runs with it before the scope is
// released. A room that reached StatusEnded is dropped from the store.
func (s *Store) Update(id uuid.UUID, apply func(r *room.Room) error, commit func(r room.Room)) (room.Room, error) {
	e, ok := s.lookup(id)
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return room.Room{}, room.ErrRoomNotFound
	}

	draft := e.room.Clone()
	if err := apply(&draft); err != nil {
		return room.Room{}, err
	}
	e.room = draft

	if !draft.Live() {
		e.removed = true
		s.mu.Lock()
		if s.rooms[id] == e {
			delete(s.rooms, id)
		}
		s.mu.Unlock()
	}

	if commit != nil {
		commit(draft.Clone())
	}
	return draft.Clone(), nil
}

// View runs fn with the current room inside its exclusive scope, so no
// Update interleaves with fn.
func (s *Store) View(id uuid.UUID, fn func(r room.Room) error) error {
	e, ok := s.lookup(id)
	if !ok {
		return room.ErrRoomNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return room.ErrRoomNotFound
	}
	return fn(e.room.Clone())
}

// Get returns a copy of the room.
func (s *Store) Get(id uuid.UUID) (room.Room, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return room.Room{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return room.Room{}, false
	}
	return e.room.Clone(), true
}

// List returns copies of every live room, oldest first.
func (s *Store) List() []room.Room {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.rooms))
	for _, e := range s.rooms {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	rooms := make([]room.Room, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			rooms = append(rooms, e.room.Clone())
		}
		e.mu.Unlock()
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

func (s *Store) MembersOf(id uuid.UUID) []room.Player {
	r, ok := s.Get(id)
	if !ok {
		return nil
	}
	return r.Players
}

func (s *Store) IsMember(id, userID uuid.UUID) bool {
	r, ok := s.Get(id)
	return ok && r.IsMember(userID)
}

func (s *Store) CharacterHolder(id, characterID uuid.UUID) (uuid.UUID, bool) {
	r, ok := s.Get(id)
	if !ok {
		return uuid.Nil, false
	}
	return r.CharacterHolder(characterID)
}

// Status reports the lifecycle state of a registered room.
func (s *Store) Status(id uuid.UUID) (room.Status, bool) {
	r, ok := s.Get(id)
	if !ok {
		return "", false
	}
	return r.Status, true
}
