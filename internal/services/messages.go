package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/room"
)

// recorder persists room messages and publishes them. Callers must already
// hold the room's roster scope.
type recorder struct {
	store Store
	hub   room.Publisher
	log   zerolog.Logger
	now   func() time.Time
}

func (rc *recorder) record(ctx context.Context, t room.EventType, m room.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = rc.now()
	}
	if err := rc.store.SaveMessage(ctx, m); err != nil {
		return err
	}
	rc.hub.Publish(room.MessageChannel(m.RoomID), room.MessageEvent(t, m))
	return nil
}

// system records a server-authored line and returns it.
func (rc *recorder) system(ctx context.Context, roomID uuid.UUID, text string) room.Message {
	m := room.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		Kind:      room.MessageSystem,
		Content:   text,
		CreatedAt: rc.now(),
	}
	rc.note(ctx, room.EventMessageReceived, m)
	return m
}

// note is record for server-authored lines. A store failure is logged; the
// line is still published so the table sees what happened.
func (rc *recorder) note(ctx context.Context, t room.EventType, m room.Message) {
	if err := rc.store.SaveMessage(ctx, m); err != nil {
		rc.log.Error().Err(err).Str("room_id", m.RoomID.String()).Msg("save system message")
	}
	rc.hub.Publish(room.MessageChannel(m.RoomID), room.MessageEvent(t, m))
}

// seat loads the sheet chosen by p. A missing sheet leaves Character nil.
func (rc *recorder) seat(ctx context.Context, p room.Player) narration.Seat {
	s := narration.Seat{PlayerName: p.Username}
	if p.CharacterID == nil {
		return s
	}

	c, err := rc.store.GetCharacter(ctx, *p.CharacterID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			rc.log.Warn().Err(err).Str("character_id", p.CharacterID.String()).Msg("load character")
		}
		return s
	}
	s.Character = c
	return s
}

func (rc *recorder) seats(ctx context.Context, r room.Room) []narration.Seat {
	out := make([]narration.Seat, len(r.Players))
	for i, p := range r.Players {
		out[i] = rc.seat(ctx, p)
	}
	return out
}

func ownedBy(c *models.Character, userID uuid.UUID) bool {
	return c != nil && c.UserID == userID
}
