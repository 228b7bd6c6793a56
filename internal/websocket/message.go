package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypePing     MessageType = "ping"
	TypePong     MessageType = "pong"
	TypeError    MessageType = "error"
	TypeAck      MessageType = "ack"
	TypeSnapshot MessageType = "snapshot"

	TypeJoin        MessageType = "join"
	TypeLeave       MessageType = "leave"
	TypeSendMessage MessageType = "send_message"
	TypeRollDice    MessageType = "roll_dice"
	TypeSubscribe   MessageType = "subscribe"
	TypeUnsubscribe MessageType = "unsubscribe"
)

// Message is the envelope of every frame in both directions. Seq is set on
// channel traffic only and grows by one per event of that channel.
type Message struct {
	Type      MessageType     `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	RoomID    *uuid.UUID      `json:"room_id,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type ErrorData struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
