// Package hub is the server-authoritative transport: every action goes
// through the room synchronization service and every committed room state is
// pushed to the subscribers of that room.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

type subscription struct {
	fn func(entity.RoomUpdate)
}

// Hub - per-room registry of subscribers.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[string]map[string]*subscription
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "hub"),
		rooms:  make(map[string]map[string]*subscription),
	}
}

// Subscribe - registers fn for the room; a second subscription with the same id replaces the first.
func (that *Hub) Subscribe(code, subscriberID string, fn func(entity.RoomUpdate)) func() {
	sub := &subscription{fn: fn}

	that.mu.Lock()
	subscribers, ok := that.rooms[code]
	if !ok {
		subscribers = make(map[string]*subscription)
		that.rooms[code] = subscribers
	}
	subscribers[subscriberID] = sub
	that.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			that.unsubscribe(code, subscriberID, sub)
		})
	}
}

// Publish - delivers the update to every subscriber of the room in the calling goroutine.
// The store calls it under the room lock, so subscribers see updates of a room in commit order.
// Subscribers of players that left, or of an abandoned room, are dropped after this final update.
func (that *Hub) Publish(_ context.Context, update entity.RoomUpdate) {
	if update.Room == nil {
		return
	}

	code := update.Room.ID

	that.mu.Lock()
	type target struct {
		id  string
		sub *subscription
	}
	targets := make([]target, 0, len(that.rooms[code]))
	for id, sub := range that.rooms[code] {
		targets = append(targets, target{id: id, sub: sub})
	}
	that.mu.Unlock()

	for _, t := range targets {
		t.sub.fn(update)
	}

	if update.Room.IsAbandoned() {
		that.mu.Lock()
		delete(that.rooms, code)
		that.mu.Unlock()

		that.logger.Debug("room subscribers dropped", "code", code)

		return
	}

	for _, t := range targets {
		if update.Left(t.id) {
			that.unsubscribe(code, t.id, t.sub)
		}
	}
}

// Subscribers - number of subscribers of the room.
func (that *Hub) Subscribers(code string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms[code])
}

func (that *Hub) unsubscribe(code, subscriberID string, sub *subscription) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subscribers, ok := that.rooms[code]
	if !ok || subscribers[subscriberID] != sub {
		return
	}

	delete(subscribers, subscriberID)
	if len(subscribers) == 0 {
		delete(that.rooms, code)
	}
}
