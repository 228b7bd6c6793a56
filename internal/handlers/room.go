package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/handlers/dto"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/internal/room"
	"github.com/thereayou/gm-table/internal/services"
)

type RoomHandler struct {
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

func roomParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id", "code": "invalid_request"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, username := middleware.Identity(c)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.rooms.Create(c.Request.Context(), userID, username, room.Config{
		Name:        req.Name,
		Description: req.Description,
		Script:      req.Script,
		MaxPlayers:  req.MaxPlayers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.List()})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}
	r, err := h.rooms.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *RoomHandler) Join(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}
	userID, username := middleware.Identity(c)
	h.reply(c)(h.rooms.Join(c.Request.Context(), id, userID, username, nil))
}

func (h *RoomHandler) Leave(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.Identity(c)
	h.reply(c)(h.rooms.Leave(c.Request.Context(), id, userID))
}

func (h *RoomHandler) SelectCharacter(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}
	var req dto.SelectCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	userID, _ := middleware.Identity(c)
	h.reply(c)(h.rooms.SelectCharacter(c.Request.Context(), id, userID, req.CharacterID))
}

func (h *RoomHandler) Start(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.Identity(c)
	h.reply(c)(h.rooms.Start(c.Request.Context(), id, userID))
}

// Remove serves both POST /:id/end and DELETE /:id.
func (h *RoomHandler) Remove(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}
	userID, _ := middleware.Identity(c)
	h.reply(c)(h.rooms.Remove(c.Request.Context(), id, userID))
}

func (h *RoomHandler) reply(c *gin.Context) func(room.Room, error) {
	return func(r room.Room, err error) {
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}
