package entity

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
)

const (
	StatusWaiting   = "waiting"
	StatusPlaying   = "playing"
	StatusFinished  = "finished"
	StatusAbandoned = "abandoned"
)

const (
	ModeSingle = "single"
	ModeLocal  = "local"
	ModeOnline = "online"
)

const MaxPlayers = 2

// ValidMode - an empty mode means online.
func ValidMode(mode string) bool {
	switch mode {
	case "", ModeSingle, ModeLocal, ModeOnline:
		return true
	default:
		return false
	}
}

type Room struct {
	ID        string     `json:"id"`
	Mode      string     `json:"mode"`
	Players   []*Player  `json:"players"`
	GameState *GameState `json:"gameState,omitempty"`
	Status    string     `json:"status"`
	Winner    string     `json:"winner,omitempty"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func NewRoom(code, mode string, now time.Time) *Room {
	if mode == "" {
		mode = ModeOnline
	}

	return &Room{
		ID:        code,
		Mode:      mode,
		Players:   []*Player{},
		Status:    StatusWaiting,
		CreatedAt: now,
	}
}

// Capacity - number of seats; a single-player room has one.
func (that *Room) Capacity() int {
	if that.Mode == ModeSingle {
		return 1
	}

	return MaxPlayers
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= that.Capacity()
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsAbandoned() bool {
	return that.Status == StatusAbandoned
}

// TurnRestricted - reports whether only the current player may act.
func (that *Room) TurnRestricted() bool {
	return that.Mode != ModeSingle
}

func (that *Room) PlayerIndex(playerID string) int {
	for i, player := range that.Players {
		if player.ID == playerID {
			return i
		}
	}

	return -1
}

func (that *Room) Player(playerID string) *Player {
	if i := that.PlayerIndex(playerID); i >= 0 {
		return that.Players[i]
	}

	return nil
}

// SeatedWith - reports whether token is the seat token issued to the player.
func (that *Room) SeatedWith(playerID, token string) bool {
	player := that.Player(playerID)
	if player == nil || player.Token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(player.Token), []byte(token)) == 1
}

func (that *Room) AddPlayer(player *Player) error {
	switch {
	case that.IsAbandoned():
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, that.ID)
	case that.IsFinished():
		return fmt.Errorf("%w: game in room %s is already finished", apperror.ErrRoomFull, that.ID)
	case that.IsFull():
		return fmt.Errorf("%w: %s", apperror.ErrRoomFull, that.ID)
	case that.PlayerIndex(player.ID) >= 0:
		return fmt.Errorf("%w: player %s is already seated", apperror.ErrAlreadyExists, player.ID)
	}

	that.Players = append(that.Players, player)

	return nil
}

// RemovePlayer - unseats the player and returns the seat index it held.
func (that *Room) RemovePlayer(playerID string) (int, error) {
	i := that.PlayerIndex(playerID)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", apperror.ErrNotAuthorized, playerID)
	}

	that.Players = append(that.Players[:i], that.Players[i+1:]...)

	return i, nil
}

func (that *Room) Age(now time.Time) time.Duration {
	return now.Sub(that.CreatedAt)
}

// Touch - marks a committed mutation.
func (that *Room) Touch() {
	that.Version++
}

func (that *Room) Clone() *Room {
	if that == nil {
		return nil
	}

	clone := *that

	clone.Players = make([]*Player, len(that.Players))
	for i, player := range that.Players {
		p := *player
		clone.Players[i] = &p
	}

	clone.GameState = that.GameState.Clone()

	if that.ExpiresAt != nil {
		expiresAt := *that.ExpiresAt
		clone.ExpiresAt = &expiresAt
	}

	return &clone
}

// Masked - copy safe to send to players: seat tokens and face values of face-down cards are hidden.
func (that *Room) Masked() *Room {
	clone := that.Clone()
	for _, player := range clone.Players {
		player.Token = ""
	}

	if clone.GameState != nil {
		clone.GameState = clone.GameState.Masked()
	}

	return clone
}
