package entity

type ActionType string

const (
	ActionFlipCard    ActionType = "FLIP_CARD"
	ActionClaimMatch  ActionType = "CLAIM_MATCH"
	ActionAdvanceTurn ActionType = "ADVANCE_TURN"
	ActionEndGame     ActionType = "GAME_END"
	ActionJoin        ActionType = "JOIN_ROOM"
	ActionLeave       ActionType = "LEAVE_ROOM"
)

// Action is a transient player request consumed by the state machine.
type Action struct {
	Type      ActionType `json:"type"`
	Position  int        `json:"position,omitempty"`
	Positions []int      `json:"positions,omitempty"`
	NextIndex int        `json:"nextPlayerIndex,omitempty"`
	Winner    string     `json:"winner,omitempty"`
	Name      string     `json:"playerName,omitempty"`
}

func FlipCard(position int) Action {
	return Action{Type: ActionFlipCard, Position: position}
}

func ClaimMatch(positions ...int) Action {
	return Action{Type: ActionClaimMatch, Positions: positions}
}

func AdvanceTurn(nextIndex int) Action {
	return Action{Type: ActionAdvanceTurn, NextIndex: nextIndex}
}

func EndGame(winner string) Action {
	return Action{Type: ActionEndGame, Winner: winner}
}

func Join(name string) Action {
	return Action{Type: ActionJoin, Name: name}
}

func Leave() Action {
	return Action{Type: ActionLeave}
}
