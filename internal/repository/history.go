package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// HistoryRecorder - keeps played games in postgres. Rooms that never started are not recorded.
type HistoryRecorder struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewHistoryRecorder(pool *pgxpool.Pool) *HistoryRecorder {
	return &HistoryRecorder{
		pool: pool,
		now:  time.Now,
	}
}

// SessionID - stable id of the game played in a room.
func SessionID(room *entity.Room) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("room:"+room.ID+"/"+strconv.FormatInt(room.CreatedAt.UnixNano(), 10)))
}

func (that *HistoryRecorder) Record(ctx context.Context, update entity.RoomUpdate) error {
	room := update.Room
	if room == nil || room.GameState == nil {
		return nil
	}

	sessionID := SessionID(room)
	now := that.now()

	tx, err := that.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var completedAt *time.Time
	if room.IsFinished() || room.IsAbandoned() {
		completedAt = &now
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO game_sessions (id, room_code, mode, status, winner, total_moves, total_seconds, version, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			winner = EXCLUDED.winner,
			total_moves = EXCLUDED.total_moves,
			total_seconds = EXCLUDED.total_seconds,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
		WHERE game_sessions.version < EXCLUDED.version`,
		sessionID, room.ID, room.Mode, room.Status, room.Winner, room.GameState.Moves,
		int(now.Sub(room.CreatedAt).Seconds()), room.Version, room.CreatedAt, now, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game session: %w", err)
	}

	batch := &pgx.Batch{}
	placements := placements(room)

	// an older commit arriving late keeps the newer participants but still adds its moves
	stale := tag.RowsAffected() == 0

	for seat, player := range room.Players {
		if stale {
			break
		}

		batch.Queue(`
			INSERT INTO game_participants (session_id, player_id, player_name, seat, score, placement)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (session_id, player_id) DO UPDATE SET
				seat = EXCLUDED.seat, score = EXCLUDED.score, placement = EXCLUDED.placement`,
			sessionID, player.ID, player.Name, seat, player.Score, placements[player.ID],
		)
	}

	for _, move := range moves(room, update.Events) {
		batch.Queue(`
			INSERT INTO game_moves (session_id, move_number, player_id, first_card_index, second_card_index, is_match, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (session_id, move_number) DO NOTHING`,
			sessionID, move.number, move.playerID, move.first, move.second, move.match, now,
		)
	}

	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to record participants and moves: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit game history: %w", err)
	}

	return nil
}

type move struct {
	number   int
	playerID string
	first    int
	second   int
	match    bool
}

// moves - resolved pairs among the events. A mismatch event names the next player, so the mover is the one before.
func moves(room *entity.Room, events []entity.Event) []move {
	var out []move

	for _, event := range events {
		if len(event.Positions) != 2 {
			continue
		}

		var playerID string

		switch event.Type {
		case entity.EventPairMatched:
			playerID = event.PlayerID
		case entity.EventTurnAdvanced:
			if n := len(room.Players); n > 0 {
				playerID = room.Players[(event.Player-1+n)%n].ID
			}
		default:
			continue
		}

		out = append(out, move{
			number:   room.GameState.Moves,
			playerID: playerID,
			first:    event.Positions[0],
			second:   event.Positions[1],
			match:    event.Type == entity.EventPairMatched,
		})
	}

	return out
}

// placements - 1 for the best score, equal scores share a place. Empty until the game is finished.
func placements(room *entity.Room) map[string]*int {
	out := make(map[string]*int, len(room.Players))
	if !room.IsFinished() {
		return out
	}

	for _, player := range room.Players {
		place := 1
		for _, other := range room.Players {
			if other.Score > player.Score {
				place++
			}
		}

		out[player.ID] = &place
	}

	return out
}

// CardFaces - face catalogue kept in postgres.
type CardFaces struct {
	pool *pgxpool.Pool
}

func NewCardFaces(pool *pgxpool.Pool) *CardFaces {
	return &CardFaces{pool: pool}
}

func (that *CardFaces) Faces(ctx context.Context) ([]string, error) {
	rows, err := that.pool.Query(ctx, `SELECT face FROM card_faces WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card faces: %w", err)
	}

	faces, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read card faces: %w", err)
	}

	return faces, nil
}

// Seed - adds faces that are not in the catalogue yet.
func (that *CardFaces) Seed(ctx context.Context, faces []string) error {
	batch := &pgx.Batch{}
	for _, face := range faces {
		batch.Queue(`INSERT INTO card_faces (face) VALUES ($1) ON CONFLICT (face) DO NOTHING`, face)
	}

	if err := that.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed card faces: %w", err)
	}

	return nil
}
