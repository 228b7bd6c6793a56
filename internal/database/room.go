package database

import (
	"context"

	"github.com/thereayou/gm-table/internal/models"
	"github.com/thereayou/gm-table/internal/room"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveRoom writes the room row and replaces its player rows in one
// transaction.
func (d *Database) SaveRoom(ctx context.Context, r room.Room) error {
	row, players := roomRow(r)

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if err := tx.Where("room_id = ?", r.ID).Delete(&models.RoomPlayer{}).Error; err != nil {
			return err
		}
		if len(players) == 0 {
			return nil
		}
		return tx.Create(&players).Error
	})
	return translate(err)
}

// LoadActiveRooms returns every room that has not ended.
func (d *Database) LoadActiveRooms(ctx context.Context) ([]room.Room, error) {
	var rows []models.Room
	err := d.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("status <> ?", string(room.StatusEnded)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	out := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		out = append(out, roomFromRow(row))
	}
	return out, nil
}
