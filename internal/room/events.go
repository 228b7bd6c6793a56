package room

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags a RoomEvent.
type EventType string

const (
	EventJoined            EventType = "joined"
	EventLeft              EventType = "left"
	EventCharacterSelected EventType = "character_selected"
	EventMessageReceived   EventType = "message_received"
	EventNarrationProduced EventType = "narration_produced"
	EventRoomStateChanged  EventType = "room_state_changed"
)

// MessageKind classifies entries of the message channel.
type MessageKind string

const (
	MessageChat      MessageKind = "chat"
	MessageDice      MessageKind = "dice"
	MessageSystem    MessageKind = "system"
	MessageNarration MessageKind = "narration"
)

// Message is one entry of a room's message channel.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     uuid.UUID   `json:"room_id"`
	SenderID   *uuid.UUID  `json:"sender_id,omitempty"`
	SenderName string      `json:"sender_name,omitempty"`
	Kind       MessageKind `json:"kind"`
	Content    string      `json:"content"`
	Notation   string      `json:"notation,omitempty"`
	Rolls      []int       `json:"rolls,omitempty"`
	Total      int         `json:"total,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Event is broadcast to room subscribers. Snapshot events carry Room,
// message events carry Message.
type Event struct {
	Type    EventType  `json:"type"`
	RoomID  uuid.UUID  `json:"room_id"`
	ActorID *uuid.UUID `json:"actor_id,omitempty"`
	Room    *Room      `json:"room,omitempty"`
	Message *Message   `json:"message,omitempty"`
	At      time.Time  `json:"at"`
}

// SnapshotEvent wraps a full room projection. actor may be uuid.Nil for
// changes the server made on its own.
func SnapshotEvent(t EventType, actor uuid.UUID, r Room, at time.Time) Event {
	ev := Event{Type: t, RoomID: r.ID, Room: &r, At: at}
	if actor != uuid.Nil {
		ev.ActorID = &actor
	}
	return ev
}

// MessageEvent wraps one message of the message channel.
func MessageEvent(t EventType, m Message) Event {
	return Event{Type: t, RoomID: m.RoomID, ActorID: m.SenderID, Message: &m, At: m.CreatedAt}
}

// MessageChannel names the chat/dice/system/narration stream of a room.
func MessageChannel(roomID uuid.UUID) string {
	return "room-" + roomID.String()
}

// UpdatesChannel names the snapshot stream of a room.
func UpdatesChannel(roomID uuid.UUID) string {
	return MessageChannel(roomID) + "-updates"
}

// Publisher delivers events to every subscriber of a channel in the order
// Publish is called.
type Publisher interface {
	Publish(channel string, ev Event)
}
