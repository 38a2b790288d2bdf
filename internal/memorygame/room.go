package memorygame

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// DeckFunc supplies the cards for a game once every seat is filled.
type DeckFunc func() ([]string, error)

// The functions below mutate the room they are given; callers pass a working copy and
// discard it when an error is returned.

// Join - seats a new player; the deck is dealt and the game starts when the last seat fills.
func Join(room *entity.Room, name string, now time.Time, deal DeckFunc) (*entity.Player, []entity.Event, error) {
	player := entity.NewPlayer(name, now)
	for room.PlayerIndex(player.ID) >= 0 {
		now = now.Add(time.Millisecond)
		player = entity.NewPlayer(name, now)
	}

	if err := room.AddPlayer(player); err != nil {
		return nil, nil, err
	}

	events := []entity.Event{{Type: entity.EventPlayerJoined, Player: len(room.Players) - 1, PlayerID: player.ID}}

	if room.IsWaiting() && room.IsFull() {
		cards, err := deal()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to deal cards: %w", err)
		}

		room.GameState = entity.NewGameState(cards)
		room.Status = entity.StatusPlaying
	}

	return player, events, nil
}

// Leave - unseats the player; a room left without players becomes abandoned.
func Leave(room *entity.Room, playerID string) ([]entity.Event, error) {
	seat, err := room.RemovePlayer(playerID)
	if err != nil {
		return nil, err
	}

	events := []entity.Event{{Type: entity.EventPlayerLeft, Player: seat, PlayerID: playerID}}

	if len(room.Players) == 0 {
		room.Status = entity.StatusAbandoned
		return append(events, entity.Event{Type: entity.EventRoomAbandoned}), nil
	}

	state := room.GameState
	if state == nil || !room.IsPlaying() {
		return events, nil
	}

	switch {
	case seat < state.CurrentPlayer:
		state.CurrentPlayer--
	case seat == state.CurrentPlayer:
		state.Flipped = []int{}
		state.CurrentPlayer = seat % len(room.Players)
	}

	return events, nil
}

// Act - applies a game action of a seated player and settles scores and the end of the game.
func Act(room *entity.Room, playerID string, action entity.Action) ([]entity.Event, error) {
	actor := room.PlayerIndex(playerID)
	if actor < 0 {
		return nil, fmt.Errorf("%w: %s in room %s", apperror.ErrNotAuthorized, playerID, room.ID)
	}

	if room.IsWaiting() || room.GameState == nil {
		return nil, fmt.Errorf("%w: game has not started", apperror.ErrInvalidMove)
	}

	state, events, err := Apply(room.GameState, action, actor, len(room.Players), room.TurnRestricted())
	if err != nil {
		return nil, err
	}

	room.GameState = state

	for i, event := range events {
		if event.Type == entity.EventPairMatched {
			room.Players[event.Player].Score++
		}
		if event.Player >= 0 && event.Player < len(room.Players) {
			events[i].PlayerID = room.Players[event.Player].ID
		}
	}

	if state.IsComplete() && room.IsPlaying() {
		room.Status = entity.StatusFinished
		room.Winner = Winner(room.Players)
		events = append(events, entity.Event{Type: entity.EventGameEnded, Player: -1, Winner: room.Winner})
	}

	return events, nil
}

// Winner - id of the player with the strictly highest score, empty on a draw.
func Winner(players []*entity.Player) string {
	var (
		best *entity.Player
		tie  bool
	)

	for _, player := range players {
		switch {
		case best == nil || player.Score > best.Score:
			best, tie = player, false
		case player.Score == best.Score:
			tie = true
		}
	}

	if best == nil || tie {
		return ""
	}

	return best.ID
}
