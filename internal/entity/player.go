package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
	// Token - seat credential; only the player it was issued to is ever sent it.
	Token string `json:"token,omitempty"`
}

// NewPlayer - builds a player whose id is derived from the display name and the join time.
func NewPlayer(name string, joinedAt time.Time) *Player {
	return &Player{
		ID:       fmt.Sprintf("%s-%d", name, joinedAt.UnixMilli()),
		Name:     name,
		JoinedAt: joinedAt,
		Token:    uuid.NewString(),
	}
}
