package sharedrecord

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// LocalBroadcast - in-process broadcast channel for replicas living in the same process.
type LocalBroadcast struct {
	mu        sync.RWMutex
	next      int
	listeners map[string]map[int]func(entity.RoomUpdate)
}

func NewLocalBroadcast() *LocalBroadcast {
	return &LocalBroadcast{
		listeners: make(map[string]map[int]func(entity.RoomUpdate)),
	}
}

func (that *LocalBroadcast) Broadcast(_ context.Context, update entity.RoomUpdate) error {
	that.mu.RLock()
	fns := make([]func(entity.RoomUpdate), 0, len(that.listeners[update.Room.ID]))
	for _, fn := range that.listeners[update.Room.ID] {
		fns = append(fns, fn)
	}
	that.mu.RUnlock()

	for _, fn := range fns {
		fn(update)
	}

	return nil
}

func (that *LocalBroadcast) Listen(code string, fn func(entity.RoomUpdate)) (func(), error) {
	that.mu.Lock()
	id := that.next
	that.next++

	if that.listeners[code] == nil {
		that.listeners[code] = make(map[int]func(entity.RoomUpdate))
	}
	that.listeners[code][id] = fn
	that.mu.Unlock()

	return func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		delete(that.listeners[code], id)
		if len(that.listeners[code]) == 0 {
			delete(that.listeners, code)
		}
	}, nil
}
