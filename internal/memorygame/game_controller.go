// Package memorygame holds the turn/match rules of the card-matching game.
//
// Apply is a pure transition over a GameState. Join, Leave and Act lift it to
// a whole Room and are shared by every transport, so the server-authoritative
// path and the client replica resolve moves with the same code.
package memorygame

import (
	"fmt"
	"slices"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// Apply - returns the state that results from the actor's action; the input state is never modified.
func Apply(state *entity.GameState, action entity.Action, actor, playerCount int, turnRestricted bool) (*entity.GameState, []entity.Event, error) {
	if state == nil {
		return nil, nil, fmt.Errorf("%w: game has not started", apperror.ErrInvalidMove)
	}

	next := state.Clone()

	var (
		events []entity.Event
		err    error
	)

	switch action.Type {
	case entity.ActionFlipCard:
		events, err = flip(next, action.Position, actor, turnRestricted)
	case entity.ActionClaimMatch:
		events, err = claim(next, action.Positions, actor, playerCount, turnRestricted)
	case entity.ActionAdvanceTurn:
		events, err = advance(next, action.NextIndex, actor, playerCount, turnRestricted)
	case entity.ActionEndGame:
		if !next.IsComplete() {
			err = fmt.Errorf("%w: game is not over", apperror.ErrInvalidMove)
		}
	default:
		err = fmt.Errorf("%w: unsupported action %q", apperror.ErrInvalidMove, action.Type)
	}

	if err != nil {
		return state, nil, err
	}

	return next, events, nil
}

func checkTurn(state *entity.GameState, actor int, turnRestricted bool) error {
	if turnRestricted && actor != state.CurrentPlayer {
		return fmt.Errorf("%w: player %d, current %d", apperror.ErrOutOfTurn, actor, state.CurrentPlayer)
	}

	return nil
}

func flip(state *entity.GameState, position, actor int, turnRestricted bool) ([]entity.Event, error) {
	if err := checkTurn(state, actor, turnRestricted); err != nil {
		return nil, err
	}

	switch {
	case !state.InRange(position):
		return nil, fmt.Errorf("%w: position %d out of range", apperror.ErrInvalidMove, position)
	case state.IsMatched(position):
		return nil, fmt.Errorf("%w: position %d is already matched", apperror.ErrInvalidMove, position)
	case state.IsFlipped(position):
		return nil, fmt.Errorf("%w: position %d is already face up", apperror.ErrInvalidMove, position)
	case len(state.Flipped) >= 2:
		return nil, fmt.Errorf("%w: two cards already face up; resolve before flipping again", apperror.ErrInvalidMove)
	}

	state.Flipped = append(state.Flipped, position)

	return []entity.Event{{Type: entity.EventCardFlipped, Player: actor, Positions: []int{position}}}, nil
}

func claim(state *entity.GameState, positions []int, actor, playerCount int, turnRestricted bool) ([]entity.Event, error) {
	// retried claim of an already resolved pair
	if len(positions) > 0 && allMatched(state, positions) {
		return nil, nil
	}

	if err := checkTurn(state, actor, turnRestricted); err != nil {
		return nil, err
	}

	if len(state.Flipped) != 2 {
		return nil, fmt.Errorf("%w: two cards must be face up to claim, have %d", apperror.ErrInvalidMove, len(state.Flipped))
	}

	first, second := state.Flipped[0], state.Flipped[1]
	if len(positions) > 0 && !samePair(positions, first, second) {
		return nil, fmt.Errorf("%w: claimed %v, face up %v", apperror.ErrInvalidMove, positions, state.Flipped)
	}

	pair := []int{min(first, second), max(first, second)}
	state.Flipped = []int{}
	state.Moves++

	if state.Cards[first] == state.Cards[second] {
		state.Matched = append(state.Matched, pair...)
		slices.Sort(state.Matched)

		return []entity.Event{{Type: entity.EventPairMatched, Player: actor, Positions: pair}}, nil
	}

	state.CurrentPlayer = nextPlayer(state.CurrentPlayer, playerCount)

	return []entity.Event{{Type: entity.EventTurnAdvanced, Player: state.CurrentPlayer, Positions: pair}}, nil
}

func advance(state *entity.GameState, nextIndex, actor, playerCount int, turnRestricted bool) ([]entity.Event, error) {
	// retried switch that already happened
	if nextIndex == state.CurrentPlayer && len(state.Flipped) == 0 {
		return nil, nil
	}

	if err := checkTurn(state, actor, turnRestricted); err != nil {
		return nil, err
	}

	if expected := nextPlayer(state.CurrentPlayer, playerCount); nextIndex != expected {
		return nil, fmt.Errorf("%w: next player must be %d, got %d", apperror.ErrInvalidMove, expected, nextIndex)
	}

	if len(state.Flipped) == 2 && state.Cards[state.Flipped[0]] == state.Cards[state.Flipped[1]] {
		return nil, fmt.Errorf("%w: a matching pair is face up; claim it", apperror.ErrInvalidMove)
	}

	cleared := state.Flipped
	if len(cleared) > 0 {
		state.Flipped = []int{}
		state.Moves++
	}

	state.CurrentPlayer = nextIndex

	return []entity.Event{{Type: entity.EventTurnAdvanced, Player: nextIndex, Positions: cleared}}, nil
}

func nextPlayer(current, playerCount int) int {
	if playerCount <= 1 {
		return current
	}

	return (current + 1) % playerCount
}

func allMatched(state *entity.GameState, positions []int) bool {
	for _, p := range positions {
		if !state.IsMatched(p) {
			return false
		}
	}

	return true
}

func samePair(positions []int, first, second int) bool {
	if len(positions) != 2 {
		return false
	}

	return (positions[0] == first && positions[1] == second) || (positions[0] == second && positions[1] == first)
}
