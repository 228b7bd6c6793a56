package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/handlers/dto"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/internal/models"
)

type CharacterStore interface {
	CreateCharacter(ctx context.Context, c *models.Character) error
	ListCharacters(ctx context.Context, userID uuid.UUID) ([]models.Character, error)
}

type CharacterHandler struct {
	characters CharacterStore
}

func NewCharacterHandler(characters CharacterStore) *CharacterHandler {
	return &CharacterHandler{characters: characters}
}

func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	userID, _ := middleware.Identity(c)

	var req dto.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ch := &models.Character{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         req.Name,
		Occupation:   req.Occupation,
		Age:          req.Age,
		Strength:     req.Strength,
		Constitution: req.Constitution,
		Size:         req.Size,
		Dexterity:    req.Dexterity,
		Appearance:   req.Appearance,
		Intelligence: req.Intelligence,
		Power:        req.Power,
		Education:    req.Education,
		Luck:         req.Luck,
		Skills:       req.Skills,
		Equipment:    req.Equipment,
		Background:   req.Background,
		CreatedAt:    time.Now(),
	}
	ch.Derive()

	if err := h.characters.CreateCharacter(c.Request.Context(), ch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, characterResponse(ch))
}

func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	userID, _ := middleware.Identity(c)

	list, err := h.characters.ListCharacters(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, len(list))
	for i := range list {
		out[i] = characterResponse(&list[i])
	}
	c.JSON(http.StatusOK, gin.H{"characters": out})
}

func characterResponse(ch *models.Character) gin.H {
	return gin.H{
		"id":         ch.ID,
		"name":       ch.Name,
		"occupation": ch.Occupation,
		"age":        ch.Age,
		"characteristics": gin.H{
			"strength":     ch.Strength,
			"constitution": ch.Constitution,
			"size":         ch.Size,
			"dexterity":    ch.Dexterity,
			"appearance":   ch.Appearance,
			"intelligence": ch.Intelligence,
			"power":        ch.Power,
			"education":    ch.Education,
			"luck":         ch.Luck,
		},
		"hit_points":       ch.HitPoints,
		"max_hit_points":   ch.MaxHitPoints,
		"magic_points":     ch.MagicPoints,
		"max_magic_points": ch.MaxMagicPoints,
		"sanity":           ch.Sanity,
		"max_sanity":       ch.MaxSanity,
		"move":             ch.Move,
		"skills":           ch.Skills,
		"equipment":        ch.Equipment,
		"background":       ch.Background,
		"created_at":       ch.CreatedAt,
	}
}
