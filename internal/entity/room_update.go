package entity

// RoomUpdate - a committed room state together with the events that produced it.
type RoomUpdate struct {
	Room   *Room   `json:"room"`
	Player *Player `json:"player,omitempty"`
	Events []Event `json:"events,omitempty"`
}

// HasEvent - reports whether the update carries an event of the given type.
func (that RoomUpdate) HasEvent(eventType EventType) bool {
	for _, event := range that.Events {
		if event.Type == eventType {
			return true
		}
	}

	return false
}

// Left - reports whether the player left the room in this update.
func (that RoomUpdate) Left(playerID string) bool {
	for _, event := range that.Events {
		if event.Type == EventPlayerLeft && event.PlayerID == playerID {
			return true
		}
	}

	return false
}
