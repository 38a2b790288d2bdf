package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// RoomStore is the authoritative in-memory map of live rooms.
// Each room carries its own mutex, so mutations of different rooms never wait on each other.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomSlot
}

type roomSlot struct {
	mu      sync.Mutex
	room    *entity.Room
	removed bool
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*roomSlot),
	}
}

func (that *RoomStore) Create(code, mode string, now time.Time) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[code]; ok {
		return nil, fmt.Errorf("%w: room %s", apperror.ErrAlreadyExists, code)
	}

	room := entity.NewRoom(code, mode, now)
	that.rooms[code] = &roomSlot{room: room}

	return room.Clone(), nil
}

// Get - returns a copy of the room; changes to it are not stored.
func (that *RoomStore) Get(code string) (*entity.Room, error) {
	slot, err := that.slot(code)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.removed {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	return slot.room.Clone(), nil
}

// Update - runs mutate on a working copy of the room under the room lock and commits it on success.
// onCommit, when set, sees the committed room before the lock is released,
// so notifications of one room are delivered in commit order.
func (that *RoomStore) Update(code string, mutate func(room *entity.Room) error, onCommit func(room *entity.Room)) (*entity.Room, error) {
	slot, err := that.slot(code)
	if err != nil {
		return nil, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.removed {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	working := slot.room.Clone()
	if err = mutate(working); err != nil {
		return nil, err
	}

	working.Touch()
	slot.room = working

	if working.IsAbandoned() {
		that.remove(code, slot)
	}

	if onCommit != nil {
		onCommit(working.Clone())
	}

	return working.Clone(), nil
}

func (that *RoomStore) Delete(code string) error {
	slot, err := that.slot(code)
	if err != nil {
		return err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.removed {
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	that.remove(code, slot)

	return nil
}

// ExpireOlderThan - removes waiting rooms created more than age before now and returns them marked abandoned.
func (that *RoomStore) ExpireOlderThan(age time.Duration, now time.Time) []*entity.Room {
	that.mu.RLock()
	candidates := make(map[string]*roomSlot, len(that.rooms))
	for code, slot := range that.rooms {
		candidates[code] = slot
	}
	that.mu.RUnlock()

	var expired []*entity.Room

	for code, slot := range candidates {
		slot.mu.Lock()

		if !slot.removed && slot.room.IsWaiting() && slot.room.Age(now) > age {
			room := slot.room.Clone()
			room.Status = entity.StatusAbandoned
			room.Touch()

			that.remove(code, slot)
			expired = append(expired, room)
		}

		slot.mu.Unlock()
	}

	return expired
}

func (that *RoomStore) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}

func (that *RoomStore) slot(code string) (*roomSlot, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	slot, ok := that.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	return slot, nil
}

// remove expects slot.mu to be held.
func (that *RoomStore) remove(code string, slot *roomSlot) {
	slot.removed = true

	that.mu.Lock()
	if that.rooms[code] == slot {
		delete(that.rooms, code)
	}
	that.mu.Unlock()
}
