package entity

import "slices"

const HiddenCard = ""

type GameState struct {
	Cards         []string `json:"cards"`
	Flipped       []int    `json:"flipped"`
	Matched       []int    `json:"matched"`
	CurrentPlayer int      `json:"currentPlayer"`
	Moves         int      `json:"moves"`
}

func NewGameState(cards []string) *GameState {
	return &GameState{
		Cards:   cards,
		Flipped: []int{},
		Matched: []int{},
	}
}

func (that *GameState) InRange(position int) bool {
	return position >= 0 && position < len(that.Cards)
}

func (that *GameState) IsFlipped(position int) bool {
	return slices.Contains(that.Flipped, position)
}

func (that *GameState) IsMatched(position int) bool {
	return slices.Contains(that.Matched, position)
}

// IsComplete - every position has been matched.
func (that *GameState) IsComplete() bool {
	return len(that.Cards) > 0 && len(that.Matched) == len(that.Cards)
}

func (that *GameState) Clone() *GameState {
	if that == nil {
		return nil
	}

	return &GameState{
		Cards:         slices.Clone(that.Cards),
		Flipped:       append([]int{}, that.Flipped...),
		Matched:       append([]int{}, that.Matched...),
		CurrentPlayer: that.CurrentPlayer,
		Moves:         that.Moves,
	}
}

func (that *GameState) Masked() *GameState {
	masked := that.Clone()

	for i := range masked.Cards {
		if !that.IsFlipped(i) && !that.IsMatched(i) {
			masked.Cards[i] = HiddenCard
		}
	}

	return masked
}
