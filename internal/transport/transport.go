// Package transport defines how player actions reach a room and how committed
// room states reach the players of that room.
package transport

import (
	"context"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// Ack - the room state an adapter settled on after delivering an action.
// Online is false when the adapter served it from its local fallback.
type Ack struct {
	entity.RoomUpdate

	Online bool `json:"online"`
}

// Adapter - a way of synchronizing one room between its players.
type Adapter interface {
	// Open - creates a room, seating the creator when a name is given.
	Open(ctx context.Context, creatorName, mode string) (*Ack, error)
	// Deliver - applies the action of a player to the room.
	Deliver(ctx context.Context, roomCode, playerID string, action entity.Action) (*Ack, error)
	// Subscribe - calls fn with every later state of the room until cancel is called.
	Subscribe(ctx context.Context, roomCode, subscriberID string, fn func(entity.RoomUpdate)) (func(), error)
	// Snapshot - the current state of the room.
	Snapshot(ctx context.Context, roomCode string) (*entity.Room, error)
}

// Publisher - receives every committed room update.
type Publisher interface {
	Publish(ctx context.Context, update entity.RoomUpdate)
}

// Fanout - publishes to each publisher in order.
type Fanout []Publisher

func (that Fanout) Publish(ctx context.Context, update entity.RoomUpdate) {
	for _, publisher := range that {
		if publisher != nil {
			publisher.Publish(ctx, update)
		}
	}
}
