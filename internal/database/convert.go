package database

import (
	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/room"
)

func roomRow(r room.Room) (models.Room, []models.RoomPlayer) {
	row := models.Room{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      string(r.Status),
		MaxPlayers:  r.MaxPlayers,
		Script:      r.Script,
		CreatedAt:   r.CreatedAt,
	}
	if r.HostID != uuid.Nil {
		host := r.HostID
		row.HostID = &host
	}

	players := make([]models.RoomPlayer, len(r.Players))
	for i, p := range r.Players {
		players[i] = models.RoomPlayer{
			RoomID:      r.ID,
			UserID:      p.UserID,
			Username:    p.Username,
			CharacterID: p.CharacterID,
			IsReady:     p.IsReady,
			Position:    i,
			JoinedAt:    p.JoinedAt,
		}
	}
	return row, players
}

func roomFromRow(row models.Room) room.Room {
	r := room.Room{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Status:      room.Status(row.Status),
		MaxPlayers:  row.MaxPlayers,
		Script:      row.Script,
		CreatedAt:   row.CreatedAt,
		Players:     make([]room.Player, 0, len(row.Players)),
	}
	if row.HostID != nil {
		r.HostID = *row.HostID
	}
	for _, p := range row.Players {
		r.Players = append(r.Players, room.Player{
			UserID:      p.UserID,
			Username:    p.Username,
			CharacterID: p.CharacterID,
			IsReady:     p.IsReady,
			JoinedAt:    p.JoinedAt,
		})
	}
	return r
}

func messageRow(m room.Message) models.ChatMessage {
	return models.ChatMessage{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Kind:       string(m.Kind),
		Content:    m.Content,
		Notation:   m.Notation,
		Rolls:      m.Rolls,
		Total:      m.Total,
		CreatedAt:  m.CreatedAt,
	}
}

func messageFromRow(row models.ChatMessage) room.Message {
	return room.Message{
		ID:         row.ID,
		RoomID:     row.RoomID,
		SenderID:   row.SenderID,
		SenderName: row.SenderName,
		Kind:       room.MessageKind(row.Kind),
		Content:    row.Content,
		Notation:   row.Notation,
		Rolls:      row.Rolls,
		Total:      row.Total,
		CreatedAt:  row.CreatedAt,
	}
}
