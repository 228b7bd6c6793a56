package models

import (
	"time"

	"github.com/google/uuid"
)

type Skill struct {
	Name         string `json:"name"`
	Value        int    `json:"value"`
	Occupational bool   `json:"is_occupational"`
}

// Character is an investigator sheet owned by one user.
type Character struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"not null"`
	Occupation string
	Age        int

	Strength     int
	Constitution int
	Size         int
	Dexterity    int
	Appearance   int
	Intelligence int
	Power        int
	Education    int
	Luck         int

	HitPoints      int
	MaxHitPoints   int
	MagicPoints    int
	MaxMagicPoints int
	Sanity         int
	MaxSanity      int
	Move           int

	Skills     []Skill  `gorm:"type:jsonb;serializer:json"`
	Equipment  []string `gorm:"type:jsonb;serializer:json"`
	Background string
	CreatedAt  time.Time
}

// Derive fills the derived attributes from the characteristics and resets
// current values to their maximum.
func (c *Character) Derive() {
	c.MaxHitPoints = ceilDiv(c.Constitution+c.Size, 10)
	c.HitPoints = c.MaxHitPoints
	c.MaxMagicPoints = ceilDiv(c.Power, 10)
	c.MagicPoints = c.MaxMagicPoints
	c.MaxSanity = c.Power
	c.Sanity = c.MaxSanity

	switch {
	case c.Strength > c.Size && c.Dexterity > c.Size:
		c.Move = 9
	case c.Strength < c.Size && c.Dexterity < c.Size:
		c.Move = 7
	default:
		c.Move = 8
	}
}

// NotableSkills returns skills valued at least min, in sheet order.
func (c *Character) NotableSkills(min int) []Skill {
	var out []Skill
	for _, s := range c.Skills {
		if s.Value >= min {
			out = append(out, s)
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
