package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/gm-table/internal/handlers/dto"
	"github.com/thereayou/gm-table/internal/middleware"
	"github.com/thereayou/gm-table/internal/services"
)

type HTTPMessageHandler struct {
	chat *services.ChatService
}

func NewHTTPMessageHandler(chat *services.ChatService) *HTTPMessageHandler {
	return &HTTPMessageHandler{chat: chat}
}

// GetRoomMessages pages the transcript backwards with ?limit= and ?before=.
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	var before *uuid.UUID
	if q.Before != "" {
		cursor := uuid.MustParse(q.Before)
		before = &cursor
	}

	userID, _ := middleware.Identity(c)
	msgs, err := h.chat.Transcript(c.Request.Context(), id, userID, q.Limit, before)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *HTTPMessageHandler) PostRoomMessage(c *gin.Context) {
	id, ok := roomParam(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	userID, _ := middleware.Identity(c)
	msg, err := h.chat.SendMessage(c.Request.Context(), id, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
