package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/testing/suite"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestClient_CreateAndGet(t *testing.T) {
	t.Run("Create_Success", func(t *testing.T) {
		ctx, st := suite.New(t)
		rooms := New(st.Logger, st.Storage, time.Hour)

		// Given: a room record
		room := entity.NewRoom("ABCD1234", entity.ModeOnline, now)

		// When: Create is called
		err := rooms.Create(ctx, room)

		// Then: the record can be read back
		require.NoError(t, err)
		stored, err := rooms.Get(ctx, "ABCD1234")
		require.NoError(t, err)
		assert.Equal(t, room.ID, stored.ID)
		assert.Equal(t, room.Status, stored.Status)
	})

	t.Run("Create_AlreadyExists", func(t *testing.T) {
		ctx, st := suite.New(t)
		rooms := New(st.Logger, st.Storage, time.Hour)

		room := entity.NewRoom("ABCD1234", entity.ModeOnline, now)
		require.NoError(t, rooms.Create(ctx, room))

		err := rooms.Create(ctx, room)

		require.ErrorIs(t, err, apperror.ErrAlreadyExists)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)
		rooms := New(st.Logger, st.Storage, time.Hour)

		// When: Get is called with a code that was never stored
		room, err := rooms.Get(ctx, "NOPE0000")

		// Then: ErrNotFound is returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, room)
	})
}

func TestClient_PutOverwrites(t *testing.T) {
	ctx, st := suite.New(t)
	rooms := New(st.Logger, st.Storage, time.Hour)

	// Given: two writers holding the same version
	room := entity.NewRoom("ABCD1234", entity.ModeOnline, now)
	require.NoError(t, rooms.Create(ctx, room))

	first, second := room.Clone(), room.Clone()
	first.Status, second.Status = entity.StatusPlaying, entity.StatusFinished
	first.Touch()
	second.Touch()

	// When: both write
	require.NoError(t, rooms.Put(ctx, first))
	require.NoError(t, rooms.Put(ctx, second))

	// Then: the last write wins
	stored, err := rooms.Get(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinished, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestClient_Watch(t *testing.T) {
	ctx, st := suite.New(t)
	rooms := New(st.Logger, st.Storage, time.Hour)

	// Given: a watcher of the room
	received := make(chan *entity.Room, 4)
	cancel, err := rooms.Watch(ctx, "ABCD1234", func(room *entity.Room) {
		received <- room
	})
	require.NoError(t, err)
	defer cancel()

	// When: the record is written
	room := entity.NewRoom("ABCD1234", entity.ModeOnline, now)
	room.Touch()
	require.NoError(t, rooms.Put(ctx, room))

	// Then: the watcher receives it
	select {
	case got := <-received:
		assert.Equal(t, int64(1), got.Version)
	case <-time.After(5 * time.Second):
		t.Fatal("no room update received")
	}
}

func TestClient_PublishMirrorsRoom(t *testing.T) {
	ctx, st := suite.New(t)
	rooms := New(st.Logger, st.Storage, time.Hour)

	room := entity.NewRoom("ABCD1234", entity.ModeOnline, now)
	rooms.Publish(ctx, entity.RoomUpdate{Room: room})

	_, err := rooms.Get(ctx, "ABCD1234")
	require.NoError(t, err)

	room.Status = entity.StatusAbandoned
	rooms.Publish(ctx, entity.RoomUpdate{Room: room})

	_, err = rooms.Get(ctx, "ABCD1234")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
