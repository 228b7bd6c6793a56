package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/gm-table/internal/dice"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/room"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ChatService carries chat lines and dice rolls of room members. While a
// room is playing each accepted line also triggers a narration.
type ChatService struct {
	rec       recorder
	roster    Roster
	narration Narrator
	roller    DiceRoller
}

func NewChatService(rs Roster, store Store, hub room.Publisher, narr Narrator, roller DiceRoller, log zerolog.Logger) *ChatService {
	return &ChatService{
		rec: recorder{
			store: store,
			hub:   hub,
			log:   log.With().Str("component", "chat").Logger(),
			now:   time.Now,
		},
		roster:    rs,
		narration: narr,
		roller:    roller,
	}
}

func (s *ChatService) SendMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (room.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return room.Message{}, ErrEmptyMessage
	}

	var msg room.Message
	err := s.roster.View(roomID, func(r room.Room) error {
		p, ok := r.Member(userID)
		if !ok {
			return room.ErrNotAMember
		}

		msg = room.Message{
			ID:         uuid.New(),
			RoomID:     roomID,
			SenderID:   &userID,
			SenderName: p.Username,
			Kind:       room.MessageChat,
			Content:    content,
			CreatedAt:  s.rec.now(),
		}
		if err := s.rec.record(ctx, room.EventMessageReceived, msg); err != nil {
			return fmt.Errorf("save message: %w", err)
		}

		if r.Status == room.StatusPlaying {
			s.narration.Dispatch(narration.Trigger{
				RoomID:    roomID,
				MessageID: msg.ID,
				UserID:    userID,
				Context:   narration.ActionContext(s.rec.seat(ctx, p), content),
			})
		}
		return nil
	})
	return msg, err
}

// RollDice rolls notation for a member and posts the result. reason is
// passed to the narrator only.
func (s *ChatService) RollDice(ctx context.Context, roomID, userID uuid.UUID, notation, reason string) (room.Message, error) {
	res, err := s.roller.Roll(notation)
	if err != nil {
		return room.Message{}, err
	}

	var msg room.Message
	err = s.roster.View(roomID, func(r room.Room) error {
		p, ok := r.Member(userID)
		if !ok {
			return room.ErrNotAMember
		}

		msg = room.Message{
			ID:         uuid.New(),
			RoomID:     roomID,
			SenderID:   &userID,
			SenderName: p.Username,
			Kind:       room.MessageDice,
			Content:    narration.RollText(p.Username, res),
			Notation:   res.Spec.String(),
			Rolls:      res.Rolls,
			Total:      res.Total,
			CreatedAt:  s.rec.now(),
		}
		if err := s.rec.record(ctx, room.EventMessageReceived, msg); err != nil {
			return fmt.Errorf("save roll: %w", err)
		}

		if r.Status == room.StatusPlaying {
			s.narration.Dispatch(narration.Trigger{
				RoomID:    roomID,
				MessageID: msg.ID,
				UserID:    userID,
				Context:   narration.RollContext(s.rec.seat(ctx, p), res, reason),
			})
		}
		return nil
	})
	return msg, err
}

// Transcript pages the durable messages of a live room for one of its
// members.
func (s *ChatService) Transcript(ctx context.Context, roomID, userID uuid.UUID, limit int, before *uuid.UUID) ([]room.Message, error) {
	r, ok := s.roster.Get(roomID)
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	if !r.IsMember(userID) {
		return nil, room.ErrNotAMember
	}

	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return s.rec.store.RoomMessages(ctx, roomID, limit, before)
}

// Announcer records messages produced by the narrator. Rooms that are no
// longer playing reject them. System lines are published even when the
// store fails; narration is not.
type Announcer struct {
	rec    recorder
	roster Roster
}

func NewAnnouncer(rs Roster, store Store, hub room.Publisher, log zerolog.Logger) *Announcer {
	return &Announcer{
		rec: recorder{
			store: store,
			hub:   hub,
			log:   log.With().Str("component", "announcer").Logger(),
			now:   time.Now,
		},
		roster: rs,
	}
}

func (a *Announcer) Announce(ctx context.Context, t room.EventType, m room.Message) error {
	return a.roster.View(m.RoomID, func(r room.Room) error {
		if r.Status != room.StatusPlaying {
			return room.ErrInvalidState
		}
		if m.Kind == room.MessageSystem {
			a.rec.note(ctx, t, m)
			return nil
		}
		return a.rec.record(ctx, t, m)
	})
}

var (
	_ DiceRoller          = (*dice.Roller)(nil)
	_ narration.Announcer = (*Announcer)(nil)
)
