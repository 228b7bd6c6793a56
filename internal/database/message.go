package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/room"
	"gorm.io/gorm"
)

func (d *Database) SaveMessage(ctx context.Context, m room.Message) error {
	row := messageRow(m)
	return translate(d.db.WithContext(ctx).Create(&row).Error)
}

// RoomMessages pages the transcript of a room backwards from before and
// returns the page oldest first.
func (d *Database) RoomMessages(ctx context.Context, roomID uuid.UUID, limit int, before *uuid.UUID) ([]room.Message, error) {
	db := d.db.WithContext(ctx)

	var cursor *models.ChatMessage
	if before != nil {
		cursor = &models.ChatMessage{}
		if err := db.First(cursor, "id = ? AND room_id = ?", *before, roomID).Error; err != nil {
			return nil, translate(err)
		}
	}

	var rows []models.ChatMessage
	if err := pageQuery(db, roomID, cursor, limit).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}

	out := make([]room.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = messageFromRow(row)
	}
	return out, nil
}

// pageQuery selects the newest limit messages strictly older than cursor in
// (created_at, id) order, so messages sharing a timestamp are not skipped.
func pageQuery(db *gorm.DB, roomID uuid.UUID, cursor *models.ChatMessage, limit int) *gorm.DB {
	query := db.Where("room_id = ?", roomID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	return query.Order("created_at DESC, id DESC").Limit(limit)
}
