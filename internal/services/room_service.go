package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/narration"
	"github.com/thereayou/gm-table/internal/room"
)

const (
	textGameStarted  = "The game has begun! The narrator has joined the table"
	textOpening      = "Let us begin today's adventure..."
	textHostClosed   = "The host has closed the room"
	textEveryoneLeft = "All players have left, the room is closed"
)

type RoomService struct {
	rec       recorder
	roster    Roster
	hub       Broadcaster
	narration Narrator
	history   HistoryClearer
	log       zerolog.Logger
}

func NewRoomService(rs Roster, store Store, hub Broadcaster, narr Narrator, hist HistoryClearer, log zerolog.Logger) *RoomService {
	log = log.With().Str("component", "rooms").Logger()
	return &RoomService{
		rec:       recorder{store: store, hub: hub, log: log, now: time.Now},
		roster:    rs,
		hub:       hub,
		narration: narr,
		history:   hist,
		log:       log,
	}
}

// change collects what a transition produced inside the room scope.
type change struct {
	event   room.EventType
	changed bool
	notes   []string
	attach  func(r room.Room)
	after   func(ctx context.Context, r room.Room)
}

// mutate runs apply in the room scope. A changed room is saved before it is
// committed; after commit one snapshot is published followed by the notes as
// system messages.
func (s *RoomService) mutate(ctx context.Context, id, actor uuid.UUID, apply func(r *room.Room, ch *change) error) (room.Room, error) {
	var ch change
	r, err := s.roster.Update(id, func(r *room.Room) error {
		if err := apply(r, &ch); err != nil {
			return err
		}
		if !ch.changed {
			return nil
		}
		if err := s.rec.store.SaveRoom(ctx, *r); err != nil {
			return fmt.Errorf("save room: %w", err)
		}
		return nil
	}, func(r room.Room) {
		if ch.attach != nil {
			ch.attach(r)
		}
		if !ch.changed {
			return
		}
		s.hub.Publish(room.UpdatesChannel(r.ID), room.SnapshotEvent(ch.event, actor, r, s.rec.now()))
		for _, note := range ch.notes {
			s.rec.system(ctx, r.ID, note)
		}
		if ch.after != nil {
			ch.after(ctx, r)
		}
	})
	if err != nil {
		return room.Room{}, err
	}

	if ch.changed && r.Status == room.StatusEnded {
		s.release(r.ID)
	}
	return r, nil
}

// release drops per-room state kept outside the roster once a room ended.
func (s *RoomService) release(id uuid.UUID) {
	s.history.Clear(id)
	s.hub.Drop(room.MessageChannel(id))
	s.hub.Drop(room.UpdatesChannel(id))
	s.log.Info().Str("room_id", id.String()).Msg("room ended")
}

// Create opens a waiting room with the host as its only member.
func (s *RoomService) Create(ctx context.Context, hostID uuid.UUID, hostName string, cfg room.Config) (room.Room, error) {
	r, err := room.New(uuid.New(), hostID, hostName, cfg, s.rec.now())
	if err != nil {
		return room.Room{}, err
	}
	if err := s.rec.store.SaveRoom(ctx, *r); err != nil {
		return room.Room{}, fmt.Errorf("save room: %w", err)
	}

	err = s.roster.Add(*r, func(cur room.Room) {
		s.hub.Publish(room.UpdatesChannel(cur.ID), room.SnapshotEvent(room.EventRoomStateChanged, hostID, cur, s.rec.now()))
	})
	if err != nil {
		return room.Room{}, err
	}

	s.log.Info().Str("room_id", r.ID.String()).Str("host_id", hostID.String()).Msg("room created")
	return *r, nil
}

// Join adds a member. attach, when given, runs in the room scope after the
// join succeeded (including a repeated join) and before anything about it
// is published, so a subscription made there sees the join line.
func (s *RoomService) Join(ctx context.Context, id, userID uuid.UUID, username string, attach func(r room.Room)) (room.Room, error) {
	return s.mutate(ctx, id, userID, func(r *room.Room, ch *change) error {
		joined, err := r.Join(userID, username, s.rec.now())
		if err != nil {
			return err
		}
		ch.event = room.EventJoined
		ch.changed = joined
		ch.notes = []string{username + " joined the room"}
		ch.attach = attach
		return nil
	})
}

// Leave never fails for a live room; leaving a room one is not in is a
// no-op.
func (s *RoomService) Leave(ctx context.Context, id, userID uuid.UUID) (room.Room, error) {
	return s.mutate(ctx, id, userID, func(r *room.Room, ch *change) error {
		res := r.Leave(userID)
		if !res.Left {
			return nil
		}
		ch.event = room.EventLeft
		ch.changed = true
		ch.notes = []string{res.Player.Username + " left the room"}
		if res.NewHost != nil {
			ch.notes = append(ch.notes, res.NewHost.Username+" is now the host")
		}
		if res.Ended {
			ch.notes = append(ch.notes, textEveryoneLeft)
		}
		return nil
	})
}

// SelectCharacter claims one of the caller's own sheets.
func (s *RoomService) SelectCharacter(ctx context.Context, id, userID, characterID uuid.UUID) (room.Room, error) {
	c, err := s.rec.store.GetCharacter(ctx, characterID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !ownedBy(c, userID)) {
		return room.Room{}, room.ErrCharacterNotFound
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("load character: %w", err)
	}

	return s.mutate(ctx, id, userID, func(r *room.Room, ch *change) error {
		selected, err := r.SelectCharacter(userID, characterID)
		if err != nil {
			return err
		}
		ch.event = room.EventCharacterSelected
		ch.changed = selected
		return nil
	})
}

// Start moves the room to playing and asks the narrator for an opening
// scene. The opening arrives later on the message channel.
func (s *RoomService) Start(ctx context.Context, id, userID uuid.UUID) (room.Room, error) {
	return s.mutate(ctx, id, userID, func(r *room.Room, ch *change) error {
		if err := r.Start(userID); err != nil {
			return err
		}
		ch.event = room.EventRoomStateChanged
		ch.changed = true
		ch.after = func(ctx context.Context, cur room.Room) {
			note := s.rec.system(ctx, cur.ID, textGameStarted)
			s.narration.Dispatch(narration.Trigger{
				RoomID:    cur.ID,
				MessageID: note.ID,
				UserID:    userID,
				Context:   narration.OpeningContext(cur.Script, s.rec.seats(ctx, cur)),
				Fallback:  textOpening,
			})
		}
		return nil
	})
}

// Remove lets the host close a room that has not ended.
func (s *RoomService) Remove(ctx context.Context, id, userID uuid.UUID) (room.Room, error) {
	return s.mutate(ctx, id, userID, func(r *room.Room, ch *change) error {
		if err := r.Close(userID); err != nil {
			return err
		}
		ch.event = room.EventRoomStateChanged
		ch.changed = true
		ch.notes = []string{textHostClosed}
		return nil
	})
}

// End closes a room on the server's behalf.
func (s *RoomService) End(ctx context.Context, id uuid.UUID) (room.Room, error) {
	return s.mutate(ctx, id, uuid.Nil, func(r *room.Room, ch *change) error {
		ch.event = room.EventRoomStateChanged
		ch.changed = r.End()
		return nil
	})
}

func (s *RoomService) Get(id uuid.UUID) (room.Room, error) {
	r, ok := s.roster.Get(id)
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}
	return r, nil
}

func (s *RoomService) List() []room.Room {
	return s.roster.List()
}

// Restore loads the rooms that were live when the process last stopped.
// Rooms left without members are ended instead.
func (s *RoomService) Restore(ctx context.Context) (int, error) {
	rooms, err := s.rec.store.LoadActiveRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rooms: %w", err)
	}

	restored := 0
	for _, r := range rooms {
		if len(r.Players) == 0 {
			r.End()
			if err := s.rec.store.SaveRoom(ctx, r); err != nil {
				s.log.Error().Err(err).Str("room_id", r.ID.String()).Msg("end empty room")
			}
			continue
		}
		if err := s.roster.Add(r, nil); err != nil {
			s.log.Warn().Err(err).Str("room_id", r.ID.String()).Msg("restore room")
			continue
		}
		restored++
	}
	return restored, nil
}

// Observe runs fn with the current room inside its scope, so fn is ordered
// against every transition of that room.
func (s *RoomService) Observe(id uuid.UUID, fn func(r room.Room) error) error {
	return s.roster.View(id, fn)
}
