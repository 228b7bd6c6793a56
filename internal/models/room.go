package models

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	Status      string `gorm:"not null;index;check:status IN ('waiting','playing','ended')"`
	MaxPlayers  int    `gorm:"default:5"`
	Script      string
	HostID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Players []RoomPlayer `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

type RoomPlayer struct {
	RoomID      uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Username    string     `gorm:"not null"`
	CharacterID *uuid.UUID `gorm:"type:uuid"`
	IsReady     bool
	Position    int
	JoinedAt    time.Time
}

type ChatMessage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;index:idx_room_created,priority:3"`
	RoomID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_room_created,priority:1"`
	SenderID   *uuid.UUID `gorm:"type:uuid"`
	SenderName string
	Kind       string `gorm:"not null;default:'chat'"`
	Content    string `gorm:"not null"`
	Notation   string
	Rolls      []int `gorm:"type:jsonb;serializer:json"`
	Total      int
	CreatedAt  time.Time `gorm:"index:idx_room_created,priority:2"`
}
