package sharedrecord

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

type deduplicator struct {
	mu      sync.Mutex
	fn      func(entity.RoomUpdate)
	version int64
	last    []byte
	seen    bool
}

func newDeduplicator(fn func(entity.RoomUpdate)) *deduplicator {
	return &deduplicator{fn: fn}
}

// offer passes the update on unless an equal or newer state was already delivered.
func (that *deduplicator) offer(update entity.RoomUpdate) {
	if update.Room == nil {
		return
	}

	encoded, err := json.Marshal(update.Room)
	if err != nil {
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.seen {
		if update.Room.Version < that.version {
			return
		}

		if update.Room.Version == that.version && bytes.Equal(encoded, that.last) {
			return
		}
	}

	that.seen = true
	that.version = update.Room.Version
	that.last = encoded

	that.fn(update)
}
