package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// RoomCache - local copy of room records, used when the shared record store is unreachable.
type RoomCache interface {
	Save(ctx context.Context, room *entity.Room) error
	Load(ctx context.Context, code string) (*entity.Room, error)
	Delete(ctx context.Context, code string) error
}

type dbRoomCache struct {
	db  *sql.DB
	now func() time.Time
}

func NewRoomCache(db *sql.DB) RoomCache {
	return &dbRoomCache{
		db:  db,
		now: time.Now,
	}
}

func (that *dbRoomCache) Save(ctx context.Context, room *entity.Room) error {
	record, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	query := `INSERT INTO room_cache (code, version, record, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET version = excluded.version, record = excluded.record, updated_at = excluded.updated_at`

	if _, err = that.db.ExecContext(ctx, query, room.ID, room.Version, string(record), that.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to cache room: %w", err)
	}

	return nil
}

func (that *dbRoomCache) Load(ctx context.Context, code string) (*entity.Room, error) {
	var record string

	err := that.db.QueryRowContext(ctx, `SELECT record FROM room_cache WHERE code = ?`, code).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s is not cached", apperror.ErrNotFound, code)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load cached room: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(record), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached room: %w", err)
	}

	return &room, nil
}

func (that *dbRoomCache) Delete(ctx context.Context, code string) error {
	if _, err := that.db.ExecContext(ctx, `DELETE FROM room_cache WHERE code = ?`, code); err != nil {
		return fmt.Errorf("failed to delete cached room: %w", err)
	}

	return nil
}
