package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/repository/storage/migrations"
	"github.com/rocketscienceinc/memorymatch-backend/testing/suite"
)

func migrated(t *testing.T) (context.Context, *suite.Suite) {
	t.Helper()

	ctx, st := suite.Postgres(t)

	migrator, err := migrations.New(st.PostgresDSN, st.Logger)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Close())

	return ctx, st
}

func playingRoom(t *testing.T) *entity.Room {
	t.Helper()

	room := entity.NewRoom("ABCD1234", entity.ModeOnline, now)
	require.NoError(t, room.AddPlayer(entity.NewPlayer("ana", now)))
	require.NoError(t, room.AddPlayer(entity.NewPlayer("bob", now)))
	room.GameState = entity.NewGameState([]string{"A", "B", "A", "B"})
	room.Status = entity.StatusPlaying

	return room
}

func TestHistoryRecorder_Record(t *testing.T) {
	t.Run("Records the session, participants and resolved moves", func(t *testing.T) {
		ctx, st := migrated(t)
		recorder := NewHistoryRecorder(st.Postgres)

		// Given: a finished game where bob matched the last pair
		room := playingRoom(t)
		room.GameState.Matched = []int{0, 1, 2, 3}
		room.GameState.Moves = 2
		room.Players[1].Score = 2
		room.Status = entity.StatusFinished
		room.Winner = room.Players[1].ID
		room.Version = 7

		update := entity.RoomUpdate{
			Room: room,
			Events: []entity.Event{
				{Type: entity.EventPairMatched, Player: 1, PlayerID: room.Players[1].ID, Positions: []int{1, 3}},
				{Type: entity.EventGameEnded, Player: -1, Winner: room.Winner},
			},
		}

		// When: the update is recorded
		err := recorder.Record(ctx, update)

		// Then: the session and its rows are stored
		require.NoError(t, err)

		var (
			status string
			winner string
			moves  int
		)
		err = st.Postgres.QueryRow(ctx, `SELECT status, winner, total_moves FROM game_sessions WHERE id = $1`, SessionID(room)).
			Scan(&status, &winner, &moves)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusFinished, status)
		assert.Equal(t, room.Winner, winner)
		assert.Equal(t, 2, moves)

		var placement int
		err = st.Postgres.QueryRow(ctx, `SELECT placement FROM game_participants WHERE player_id = $1`, room.Players[1].ID).Scan(&placement)
		require.NoError(t, err)
		assert.Equal(t, 1, placement)

		var isMatch bool
		err = st.Postgres.QueryRow(ctx, `SELECT is_match FROM game_moves WHERE move_number = 2`).Scan(&isMatch)
		require.NoError(t, err)
		assert.True(t, isMatch)
	})

	t.Run("An older version does not overwrite a newer one but keeps its moves", func(t *testing.T) {
		ctx, st := migrated(t)
		recorder := NewHistoryRecorder(st.Postgres)

		newer := playingRoom(t)
		newer.Version = 5
		newer.GameState.Moves = 3
		older := newer.Clone()
		older.Version = 4
		older.GameState.Moves = 2

		// Given: the newer commit resolved move 3 and the older one move 2
		newerMove := entity.Event{Type: entity.EventTurnAdvanced, Player: 0, Positions: []int{1, 2}}
		olderMove := entity.Event{Type: entity.EventPairMatched, Player: 0, PlayerID: newer.Players[0].ID, Positions: []int{0, 2}}

		// When: the older commit is recorded after the newer one
		require.NoError(t, recorder.Record(ctx, entity.RoomUpdate{Room: newer, Events: []entity.Event{newerMove}}))
		require.NoError(t, recorder.Record(ctx, entity.RoomUpdate{Room: older, Events: []entity.Event{olderMove}}))

		// Then: the session keeps the newer totals
		var moves int
		err := st.Postgres.QueryRow(ctx, `SELECT total_moves FROM game_sessions WHERE id = $1`, SessionID(newer)).Scan(&moves)
		require.NoError(t, err)
		assert.Equal(t, 3, moves)

		// And: the late move is still stored
		var numbers []int
		rows, err := st.Postgres.Query(ctx, `SELECT move_number FROM game_moves WHERE session_id = $1 ORDER BY move_number`, SessionID(newer))
		require.NoError(t, err)
		for rows.Next() {
			var number int
			require.NoError(t, rows.Scan(&number))
			numbers = append(numbers, number)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []int{2, 3}, numbers)
	})

	t.Run("Waiting rooms are skipped", func(t *testing.T) {
		recorder := NewHistoryRecorder(nil)

		err := recorder.Record(context.Background(), entity.RoomUpdate{Room: entity.NewRoom("ABCD1234", entity.ModeOnline, now)})

		require.NoError(t, err)
	})
}

func TestCardFaces(t *testing.T) {
	ctx, st := migrated(t)
	faces := NewCardFaces(st.Postgres)

	// Given: a seeded catalogue with a duplicate
	require.NoError(t, faces.Seed(ctx, []string{"cat", "dog", "cat", "owl"}))

	// When: faces are listed
	got, err := faces.Faces(ctx)

	// Then: each face appears once in insertion order
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog", "owl"}, got)
}

func TestPlacementsAndMoves(t *testing.T) {
	room := playingRoom(t)
	room.GameState.Moves = 1
	room.GameState.CurrentPlayer = 1

	got := moves(room, []entity.Event{{Type: entity.EventTurnAdvanced, Player: 1, Positions: []int{0, 1}}})

	require.Len(t, got, 1)
	assert.Equal(t, room.Players[0].ID, got[0].playerID)
	assert.False(t, got[0].match)

	assert.Empty(t, placements(room))

	room.Status = entity.StatusFinished
	room.Players[0].Score, room.Players[1].Score = 1, 1
	places := placements(room)
	assert.Equal(t, 1, *places[room.Players[0].ID])
	assert.Equal(t, 1, *places[room.Players[1].ID])
}
