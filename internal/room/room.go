// Package room holds the game-session domain: the Room lifecycle state
// machine, its membership records and the events broadcast about it.
package room

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

const (
	DefaultMaxPlayers = 5
	MaxPlayersLimit   = 10
)

// Config carries the host-provided fields of a new room.
type Config struct {
	Name        string
	Description string
	Script      string
	MaxPlayers  int
}

// Player is the membership record of one user in one room.
type Player struct {
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username"`
	CharacterID *uuid.UUID `json:"character_id,omitempty"`
	IsReady     bool       `json:"is_ready"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// Room is one game session. Players are kept in join order.
type Room struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	MaxPlayers  int       `json:"max_players"`
	Script      string    `json:"script,omitempty"`
	HostID      uuid.UUID `json:"host_id"`
	Players     []Player  `json:"players"`
	CreatedAt   time.Time `json:"created_at"`
}

// New creates a room in the waiting state with the host as its first member.
func New(id, hostID uuid.UUID, hostName string, cfg Config, now time.Time) (*Room, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, ErrInvalidConfig
	}

	maxPlayers := cfg.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if maxPlayers < 1 || maxPlayers > MaxPlayersLimit {
		return nil, ErrInvalidConfig
	}

	return &Room{
		ID:          id,
		Name:        name,
		Description: cfg.Description,
		Status:      StatusWaiting,
		MaxPlayers:  maxPlayers,
		Script:      cfg.Script,
		HostID:      hostID,
		Players: []Player{{
			UserID:   hostID,
			Username: hostName,
			JoinedAt: now,
		}},
		CreatedAt: now,
	}, nil
}

// Clone returns a deep copy that shares no mutable state with r.
func (r *Room) Clone() Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		if p.CharacterID != nil {
			id := *p.CharacterID
			p.CharacterID = &id
		}
		c.Players[i] = p
	}
	return c
}

func (r *Room) indexOf(userID uuid.UUID) int {
	for i := range r.Players {
		if r.Players[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Member returns the membership record of userID.
func (r *Room) Member(userID uuid.UUID) (Player, bool) {
	i := r.indexOf(userID)
	if i < 0 {
		return Player{}, false
	}
	return r.Players[i], true
}

func (r *Room) IsMember(userID uuid.UUID) bool {
	return r.indexOf(userID) >= 0
}

// Host returns the membership record of the current host.
func (r *Room) Host() (Player, bool) {
	return r.Member(r.HostID)
}

// CharacterHolder reports which member has claimed characterID.
func (r *Room) CharacterHolder(characterID uuid.UUID) (uuid.UUID, bool) {
	for _, p := range r.Players {
		if p.CharacterID != nil && *p.CharacterID == characterID {
			return p.UserID, true
		}
	}
	return uuid.Nil, false
}

func (r *Room) Live() bool {
	return r.Status != StatusEnded
}
