package dto

import "github.com/thereayou/gm-table/internal/models"

type CreateCharacterRequest struct {
	Name         string         `json:"name" binding:"required,max=100"`
	Occupation   string         `json:"occupation" binding:"max=100"`
	Age          int            `json:"age" binding:"min=0"`
	Strength     int            `json:"strength" binding:"min=0"`
	Constitution int            `json:"constitution" binding:"min=0"`
	Size         int            `json:"size" binding:"min=0"`
	Dexterity    int            `json:"dexterity" binding:"min=0"`
	Appearance   int            `json:"appearance" binding:"min=0"`
	Intelligence int            `json:"intelligence" binding:"min=0"`
	Power        int            `json:"power" binding:"min=0"`
	Education    int            `json:"education" binding:"min=0"`
	Luck         int            `json:"luck" binding:"min=0"`
	Skills       []models.Skill `json:"skills" binding:"dive"`
	Equipment    []string       `json:"equipment"`
	Background   string         `json:"background"`
}
