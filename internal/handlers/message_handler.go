package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thereayou/gm-table/internal/handlers/dto"
	"github.com/thereayou/gm-table/internal/room"
	"github.com/thereayou/gm-table/internal/services"
	"github.com/thereayou/gm-table/internal/websocket"
)

const actionTimeout = 10 * time.Second

// MessageHandler routes websocket actions to the room and chat services.
type MessageHandler struct {
	rooms *services.RoomService
	chat  *services.ChatService
	hub   *websocket.Hub
	log   zerolog.Logger
}

func NewMessageHandler(rooms *services.RoomService, chat *services.ChatService, hub *websocket.Hub, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{rooms: rooms, chat: chat, hub: hub, log: log}
}

func (h *MessageHandler) HandleMessage(client *websocket.Client, msg *websocket.Message) error {
	if msg.RoomID == nil {
		return websocket.ErrInvalidMessage
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case websocket.TypeJoin:
		err = h.join(ctx, client, msg)
	case websocket.TypeLeave:
		err = h.leave(ctx, client, msg)
	case websocket.TypeSendMessage:
		err = h.sendMessage(ctx, client, msg)
	case websocket.TypeRollDice:
		err = h.rollDice(ctx, client, msg)
	case websocket.TypeSubscribe:
		err = h.subscribe(client, msg)
	case websocket.TypeUnsubscribe:
		err = h.unsubscribe(client, msg)
	default:
		err = fmt.Errorf("%w: unknown type %q", websocket.ErrInvalidMessage, msg.Type)
	}
	if err != nil {
		return actionError(err)
	}
	return nil
}

// join also subscribes the connection to the room's message channel.
func (h *MessageHandler) join(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	roomID := *msg.RoomID
	var subErr error
	r, err := h.rooms.Join(ctx, roomID, client.UserID, client.Username, func(room.Room) {
		subErr = h.hub.Subscribe(client, room.MessageChannel(roomID), nil)
	})
	if err != nil {
		return err
	}
	if subErr != nil {
		return subErr
	}
	return client.Reply(msg, websocket.TypeAck, r)
}

func (h *MessageHandler) leave(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	roomID := *msg.RoomID
	r, err := h.rooms.Leave(ctx, roomID, client.UserID)
	if err != nil {
		return err
	}
	h.hub.Unsubscribe(client, room.MessageChannel(roomID))
	return client.Reply(msg, websocket.TypeAck, r)
}

func (h *MessageHandler) sendMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	if !client.Allow() {
		return websocket.ErrRateLimited
	}

	var payload dto.SendMessageRequest
	if err := decode(msg, &payload); err != nil {
		return err
	}

	m, err := h.chat.SendMessage(ctx, *msg.RoomID, client.UserID, payload.Content)
	if err != nil {
		return err
	}
	return client.Reply(msg, websocket.TypeAck, m)
}

func (h *MessageHandler) rollDice(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	if !client.Allow() {
		return websocket.ErrRateLimited
	}

	var payload dto.RollDicePayload
	if err := decode(msg, &payload); err != nil {
		return err
	}

	m, err := h.chat.RollDice(ctx, *msg.RoomID, client.UserID, payload.Notation, payload.Reason)
	if err != nil {
		return err
	}
	return client.Reply(msg, websocket.TypeAck, m)
}

// subscribe attaches to the snapshot stream, which anyone may watch, or to
// the message stream of a room the caller belongs to. The snapshot stream
// starts with the current room.
func (h *MessageHandler) subscribe(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.SubscribePayload
	if len(msg.Data) > 0 {
		if err := decode(msg, &payload); err != nil {
			return err
		}
	}

	roomID := *msg.RoomID
	err := h.rooms.Observe(roomID, func(r room.Room) error {
		switch payload.Stream {
		case "", "updates":
			snap := room.SnapshotEvent(room.EventRoomStateChanged, client.UserID, r, time.Now())
			return h.hub.Subscribe(client, room.UpdatesChannel(roomID), &snap)
		case "messages":
			if !r.IsMember(client.UserID) {
				return room.ErrNotAMember
			}
			return h.hub.Subscribe(client, room.MessageChannel(roomID), nil)
		default:
			return fmt.Errorf("%w: unknown stream %q", websocket.ErrInvalidMessage, payload.Stream)
		}
	})
	if err != nil {
		return err
	}
	return client.Reply(msg, websocket.TypeAck, nil)
}

func (h *MessageHandler) unsubscribe(client *websocket.Client, msg *websocket.Message) error {
	var payload dto.SubscribePayload
	if len(msg.Data) > 0 {
		if err := decode(msg, &payload); err != nil {
			return err
		}
	}

	roomID := *msg.RoomID
	switch payload.Stream {
	case "", "updates":
		h.hub.Unsubscribe(client, room.UpdatesChannel(roomID))
	case "messages":
		h.hub.Unsubscribe(client, room.MessageChannel(roomID))
	default:
		return fmt.Errorf("%w: unknown stream %q", websocket.ErrInvalidMessage, payload.Stream)
	}
	return client.Reply(msg, websocket.TypeAck, nil)
}

func decode(msg *websocket.Message, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %v", websocket.ErrInvalidMessage, err)
	}
	return nil
}
