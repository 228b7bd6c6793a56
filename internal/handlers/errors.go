package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/gm-table/internal/database"
	"github.com/thereayou/gm-table/internal/dice"
	"github.com/thereayou/gm-table/internal/room"
	"github.com/thereayou/gm-table/internal/services"
	"github.com/thereayou/gm-table/internal/websocket"
)

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{room.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	{room.ErrNotAMember, http.StatusForbidden, "not_a_member"},
	{room.ErrNotHost, http.StatusForbidden, "not_host"},
	{room.ErrRoomFull, http.StatusConflict, "room_full"},
	{room.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{room.ErrPlayersNotReady, http.StatusConflict, "players_not_ready"},
	{room.ErrCharacterTaken, http.StatusConflict, "character_taken"},
	{room.ErrMissingScript, http.StatusUnprocessableEntity, "missing_script"},
	{room.ErrCharacterNotFound, http.StatusNotFound, "character_not_found"},
	{room.ErrInvalidConfig, http.StatusBadRequest, "invalid_config"},
	{dice.ErrInvalidDiceNotation, http.StatusBadRequest, "invalid_dice_notation"},
	{services.ErrEmptyMessage, http.StatusBadRequest, "empty_message"},
	{websocket.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{websocket.ErrInvalidMessage, http.StatusBadRequest, "invalid_message"},
	{database.ErrNotFound, http.StatusNotFound, "not_found"},
	{database.ErrDuplicate, http.StatusConflict, "already_exists"},
}

func statusFor(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
}

// actionError tags err with the code websocket clients match on.
func actionError(err error) error {
	_, code := statusFor(err)
	return &websocket.ActionError{Code: code, Err: err}
}
