package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestRoomStore_Create(t *testing.T) {
	t.Run("Create_Success", func(t *testing.T) {
		store := NewRoomStore()

		// When: a room is created
		room, err := store.Create("ABCD1234", entity.ModeOnline, now)

		// Then: it is stored as waiting
		require.NoError(t, err)
		assert.Equal(t, "ABCD1234", room.ID)
		assert.True(t, room.IsWaiting())
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Create_AlreadyExists", func(t *testing.T) {
		store := NewRoomStore()
		_, err := store.Create("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, err)

		_, err = store.Create("ABCD1234", entity.ModeOnline, now)

		require.ErrorIs(t, err, apperror.ErrAlreadyExists)
	})
}

func TestRoomStore_Get(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		store := NewRoomStore()

		room, err := store.Get("NOPE0000")

		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, room)
	})

	t.Run("Returned room is a copy", func(t *testing.T) {
		store := NewRoomStore()
		_, err := store.Create("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, err)

		room, err := store.Get("ABCD1234")
		require.NoError(t, err)
		room.Status = entity.StatusFinished

		stored, err := store.Get("ABCD1234")
		require.NoError(t, err)
		assert.True(t, stored.IsWaiting())
	})
}

func TestRoomStore_Update(t *testing.T) {
	t.Run("Commits on success and bumps the version", func(t *testing.T) {
		// Given: a stored room
		store := NewRoomStore()
		_, err := store.Create("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, err)

		var committed *entity.Room

		// When: a mutation succeeds
		room, err := store.Update("ABCD1234", func(room *entity.Room) error {
			return room.AddPlayer(entity.NewPlayer("ana", now))
		}, func(room *entity.Room) {
			committed = room
		})

		// Then: the change is stored and onCommit saw it
		require.NoError(t, err)
		assert.Len(t, room.Players, 1)
		assert.Equal(t, int64(1), room.Version)
		require.NotNil(t, committed)
		assert.Equal(t, room, committed)
	})

	t.Run("Discards the working copy on error", func(t *testing.T) {
		store := NewRoomStore()
		_, err := store.Create("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, err)
		failure := errors.New("rejected")

		_, err = store.Update("ABCD1234", func(room *entity.Room) error {
			room.Status = entity.StatusPlaying
			return failure
		}, func(*entity.Room) {
			t.Fatal("onCommit must not run")
		})

		require.ErrorIs(t, err, failure)
		stored, err := store.Get("ABCD1234")
		require.NoError(t, err)
		assert.True(t, stored.IsWaiting())
		assert.Zero(t, stored.Version)
	})

	t.Run("An abandoned room is removed", func(t *testing.T) {
		store := NewRoomStore()
		_, err := store.Create("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, err)

		room, err := store.Update("ABCD1234", func(room *entity.Room) error {
			room.Status = entity.StatusAbandoned
			return nil
		}, nil)

		require.NoError(t, err)
		assert.True(t, room.IsAbandoned())
		_, err = store.Get("ABCD1234")
		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Concurrent updates of one room are serialized", func(t *testing.T) {
		store := NewRoomStore()
		_, err := store.Create("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			order    []int64
			orderMux sync.Mutex
		)

		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := store.Update("ABCD1234", func(*entity.Room) error { return nil }, func(room *entity.Room) {
					orderMux.Lock()
					order = append(order, room.Version)
					orderMux.Unlock()
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		// Then: every commit saw a distinct version, in increasing order
		require.Len(t, order, 50)
		for i, version := range order {
			assert.Equal(t, int64(i+1), version)
		}
	})
}

func TestRoomStore_Delete(t *testing.T) {
	store := NewRoomStore()
	_, err := store.Create("ABCD1234", entity.ModeOnline, now)
	require.NoError(t, err)

	require.NoError(t, store.Delete("ABCD1234"))

	require.ErrorIs(t, store.Delete("ABCD1234"), apperror.ErrNotFound)
	assert.Zero(t, store.Len())
}

func TestRoomStore_ExpireOlderThan(t *testing.T) {
	// Given: an old waiting room, a fresh waiting room and an old room in play
	store := NewRoomStore()
	_, err := store.Create("OLD00001", entity.ModeOnline, now.Add(-20*time.Minute))
	require.NoError(t, err)
	_, err = store.Create("NEW00001", entity.ModeOnline, now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = store.Create("PLAY0001", entity.ModeOnline, now.Add(-20*time.Minute))
	require.NoError(t, err)
	_, err = store.Update("PLAY0001", func(room *entity.Room) error {
		room.Status = entity.StatusPlaying
		return nil
	}, nil)
	require.NoError(t, err)

	// When: sweeping with a 15 minute expiry
	expired := store.ExpireOlderThan(15*time.Minute, now)

	// Then: only the old waiting room is gone
	require.Len(t, expired, 1)
	assert.Equal(t, "OLD00001", expired[0].ID)
	assert.True(t, expired[0].IsAbandoned())

	_, err = store.Get("OLD00001")
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = store.Update("OLD00001", func(room *entity.Room) error {
		return room.AddPlayer(entity.NewPlayer("ana", now))
	}, nil)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Equal(t, 2, store.Len())
}
