package dto

import "github.com/google/uuid"

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
	MaxPlayers  int    `json:"max_players" binding:"omitempty,min=1,max=10"`
	Script      string `json:"script"`
}

type SelectCharacterRequest struct {
	CharacterID uuid.UUID `json:"character_id" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// RollDicePayload is the data of a roll_dice action.
type RollDicePayload struct {
	Notation string `json:"notation"`
	Reason   string `json:"reason,omitempty"`
}

// SubscribePayload selects the stream of a subscribe or unsubscribe
// action: "updates" (default) or "messages".
type SubscribePayload struct {
	Stream string `json:"stream,omitempty"`
}

type PageQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Before string `form:"before" binding:"omitempty,uuid"`
}
