package entity

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func TestRoomStatusMethods(t *testing.T) {
	t.Run("A new room is waiting and online by default", func(t *testing.T) {
		// When: creating a room without a mode
		room := NewRoom("ABCD1234", "", now)

		// Then: it waits for players in online mode with two seats
		assert.True(t, room.IsWaiting())
		assert.Equal(t, ModeOnline, room.Mode)
		assert.Equal(t, MaxPlayers, room.Capacity())
		assert.Empty(t, room.Players)
		assert.Nil(t, room.GameState)
	})

	t.Run("A single-player room has one seat and no turn restriction", func(t *testing.T) {
		room := NewRoom("SOLO0001", ModeSingle, now)

		assert.Equal(t, 1, room.Capacity())
		assert.False(t, room.TurnRestricted())
	})
}

func TestRoom_AddPlayer(t *testing.T) {
	t.Run("Seats players until capacity", func(t *testing.T) {
		// Given: a waiting online room
		room := NewRoom("ABCD1234", ModeOnline, now)

		// When: two players join
		require.NoError(t, room.AddPlayer(NewPlayer("ana", now)))
		require.NoError(t, room.AddPlayer(NewPlayer("bob", now)))

		// Then: the room is full and a third join fails with ErrRoomFull
		assert.True(t, room.IsFull())
		err := room.AddPlayer(NewPlayer("eve", now))
		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.Len(t, room.Players, 2)
	})

	t.Run("Rejects a player id that is already seated", func(t *testing.T) {
		room := NewRoom("ABCD1234", ModeOnline, now)
		player := NewPlayer("ana", now)
		require.NoError(t, room.AddPlayer(player))

		err := room.AddPlayer(&Player{ID: player.ID, Name: "ana"})

		require.ErrorIs(t, err, apperror.ErrAlreadyExists)
	})

	t.Run("Rejects joining a finished game", func(t *testing.T) {
		room := NewRoom("ABCD1234", ModeOnline, now)
		room.Status = StatusFinished

		err := room.AddPlayer(NewPlayer("ana", now))

		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})
}

func TestRoom_RemovePlayer(t *testing.T) {
	t.Run("Removes the seat and keeps order", func(t *testing.T) {
		// Given: a full room
		room := NewRoom("ABCD1234", ModeOnline, now)
		ana, bob := NewPlayer("ana", now), NewPlayer("bob", now)
		require.NoError(t, room.AddPlayer(ana))
		require.NoError(t, room.AddPlayer(bob))

		// When: the first player leaves
		seat, err := room.RemovePlayer(ana.ID)

		// Then: bob moves into seat 0
		require.NoError(t, err)
		assert.Equal(t, 0, seat)
		assert.Equal(t, 0, room.PlayerIndex(bob.ID))
	})

	t.Run("Unknown player is not authorized", func(t *testing.T) {
		room := NewRoom("ABCD1234", ModeOnline, now)

		_, err := room.RemovePlayer("ghost-1")

		require.ErrorIs(t, err, apperror.ErrNotAuthorized)
	})
}

func TestRoom_CloneAndMask(t *testing.T) {
	// Given: a room in play with one flipped and two matched cards
	room := NewRoom("ABCD1234", ModeOnline, now)
	require.NoError(t, room.AddPlayer(NewPlayer("ana", now)))
	room.GameState = NewGameState([]string{"A", "B", "A", "B"})
	room.GameState.Matched = []int{0, 2}
	room.GameState.Flipped = []int{1}

	// When: cloning and masking
	clone := room.Clone()
	masked := room.Masked()
	clone.Players[0].Score = 5
	clone.GameState.Flipped = append(clone.GameState.Flipped, 3)

	// Then: the original is untouched and the mask hides face-down cards only
	assert.Equal(t, 0, room.Players[0].Score)
	assert.Equal(t, []int{1}, room.GameState.Flipped)
	assert.Equal(t, []string{"A", "B", "A", HiddenCard}, masked.GameState.Cards)
	assert.Equal(t, []string{"A", "B", "A", "B"}, room.GameState.Cards)
	assert.Empty(t, masked.Players[0].Token)
	assert.NotEmpty(t, room.Players[0].Token)
}

func TestNewPlayer(t *testing.T) {
	player := NewPlayer("ana", now)

	assert.Equal(t, "ana-1792238400000", player.ID)
	assert.Equal(t, "ana", player.Name)
	assert.Zero(t, player.Score)
	assert.NotEmpty(t, player.Token)
	assert.NotEqual(t, player.Token, NewPlayer("ana", now).Token)
}

func TestRoom_SeatedWith(t *testing.T) {
	room := NewRoom("ABCD1234", ModeOnline, now)
	ana := NewPlayer("ana", now)
	require.NoError(t, room.AddPlayer(ana))

	assert.True(t, room.SeatedWith(ana.ID, ana.Token))
	assert.False(t, room.SeatedWith(ana.ID, ""))
	assert.False(t, room.SeatedWith(ana.ID, "not-the-token"))
	assert.False(t, room.SeatedWith("eve-1", ana.Token))
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{"", ModeSingle, ModeLocal, ModeOnline} {
		assert.True(t, ValidMode(mode), mode)
	}

	assert.False(t, ValidMode("tournament"))
	assert.False(t, ValidMode("Online"))
}
