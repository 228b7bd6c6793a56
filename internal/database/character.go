package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/models"
)

func (d *Database) CreateCharacter(ctx context.Context, c *models.Character) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return translate(d.db.WithContext(ctx).Create(c).Error)
}

func (d *Database) GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	var c models.Character
	if err := d.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (d *Database) ListCharacters(ctx context.Context, userID uuid.UUID) ([]models.Character, error) {
	var out []models.Character
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error
	return out, translate(err)
}
