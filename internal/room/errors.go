package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotAMember        = errors.New("user is not a member of this room")
	ErrRoomFull          = errors.New("room is full")
	ErrInvalidState      = errors.New("room is not in a valid state for this action")
	ErrNotHost           = errors.New("only the host can perform this action")
	ErrPlayersNotReady   = errors.New("not all players have selected their characters")
	ErrMissingScript     = errors.New("room script is required to start the game")
	ErrCharacterTaken    = errors.New("character is already selected by another player")
	ErrCharacterNotFound = errors.New("character not found")
	ErrInvalidConfig     = errors.New("invalid room configuration")
)
