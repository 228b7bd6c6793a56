// Package services orchestrates rooms: every transition runs inside the
// room's roster scope, is persisted before it is committed and is published
// before the scope is released.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/dice"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/room"
)

var ErrEmptyMessage = errors.New("message is empty")

// Store is the durable side of rooms, transcripts and character sheets.
type Store interface {
	SaveRoom(ctx context.Context, r room.Room) error
	LoadActiveRooms(ctx context.Context) ([]room.Room, error)
	SaveMessage(ctx context.Context, m room.Message) error
	RoomMessages(ctx context.Context, roomID uuid.UUID, limit int, before *uuid.UUID) ([]room.Message, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error)
}

// Roster is the in-memory authority on live rooms.
type Roster interface {
	Add(r room.Room, commit func(r room.Room)) error
	Update(id uuid.UUID, apply func(r *room.Room) error, commit func(r room.Room)) (room.Room, error)
	View(id uuid.UUID, fn func(r room.Room) error) error
	Get(id uuid.UUID) (room.Room, bool)
	List() []room.Room
}

// Broadcaster publishes room events and forgets channels of ended rooms.
type Broadcaster interface {
	room.Publisher
	Drop(channel string)
}

type Narrator interface {
	Dispatch(t narration.Trigger) bool
}

type HistoryClearer interface {
	Clear(roomID uuid.UUID)
}

type DiceRoller interface {
	Roll(notation string) (dice.Result, error)
}
