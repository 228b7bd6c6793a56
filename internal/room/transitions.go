package room

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Join adds userID to the room. It reports false without error when the
// user is already a member.
func (r *Room) Join(userID uuid.UUID, username string, now time.Time) (bool, error) {
	if r.IsMember(userID) {
		return false, nil
	}
	if r.Status != StatusWaiting {
		return false, ErrInvalidState
	}
	if len(r.Players) >= r.MaxPlayers {
		return false, ErrRoomFull
	}

	r.Players = append(r.Players, Player{
		UserID:   userID,
		Username: username,
		JoinedAt: now,
	})
	return true, nil
}

// LeaveResult describes what a departure changed.
type LeaveResult struct {
	Left    bool
	Player  Player
	NewHost *Player
	Ended   bool
}

// Leave removes userID from the room. Host duty passes to the earliest
// joined remaining member; an empty room ends.
func (r *Room) Leave(userID uuid.UUID) LeaveResult {
	i := r.indexOf(userID)
	if i < 0 {
		return LeaveResult{}
	}

	res := LeaveResult{Left: true, Player: r.Players[i]}
	r.Players = append(r.Players[:i:i], r.Players[i+1:]...)

	if len(r.Players) == 0 {
		r.HostID = uuid.Nil
		res.Ended = r.End()
		return res
	}

	if userID == r.HostID {
		next := r.Players[0]
		r.HostID = next.UserID
		res.NewHost = &next
	}

	return res
}

// SelectCharacter assigns characterID to userID and marks them ready.
// Re-selecting the character already held reports false without error.
func (r *Room) SelectCharacter(userID, characterID uuid.UUID) (bool, error) {
	i := r.indexOf(userID)
	if i < 0 {
		return false, ErrNotAMember
	}
	if r.Status == StatusEnded {
		return false, ErrInvalidState
	}
	if holder, ok := r.CharacterHolder(characterID); ok && holder != userID {
		return false, ErrCharacterTaken
	}

	p := &r.Players[i]
	if p.CharacterID != nil && *p.CharacterID == characterID {
		return false, nil
	}

	id := characterID
	p.CharacterID = &id
	p.IsReady = true
	return true, nil
}

// Start moves a waiting room to playing once every member is ready.
func (r *Room) Start(userID uuid.UUID) error {
	if r.HostID != userID {
		return ErrNotHost
	}
	if r.Status != StatusWaiting {
		return ErrInvalidState
	}
	for _, p := range r.Players {
		if !p.IsReady {
			return ErrPlayersNotReady
		}
	}
	if strings.TrimSpace(r.Script) == "" {
		return ErrMissingScript
	}

	r.Status = StatusPlaying
	return nil
}

// Close ends the room on behalf of its host.
func (r *Room) Close(userID uuid.UUID) error {
	if r.HostID != userID {
		return ErrNotHost
	}
	if !r.End() {
		return ErrInvalidState
	}
	return nil
}

// End moves the room to its terminal state. It reports false if the room
// had already ended.
func (r *Room) End() bool {
	if r.Status == StatusEnded {
		return false
	}
	r.Status = StatusEnded
	return true
}
