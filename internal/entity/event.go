package entity

type EventType string

const (
	EventCardFlipped   EventType = "CardFlipped"
	EventPairMatched   EventType = "PairMatched"
	EventTurnAdvanced  EventType = "TurnAdvanced"
	EventGameEnded     EventType = "GameEnded"
	EventPlayerJoined  EventType = "PlayerJoined"
	EventPlayerLeft    EventType = "PlayerLeft"
	EventRoomAbandoned EventType = "RoomAbandoned"
)

type Event struct {
	Type      EventType `json:"type"`
	Player    int       `json:"player"`
	PlayerID  string    `json:"playerId,omitempty"`
	Positions []int     `json:"positions,omitempty"`
	Winner    string    `json:"winner,omitempty"`
}
