package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

const (
	roomKeyPrefix        = "room:"
	updatesChannelPrefix = "room-updates:"

	publishTimeout = 2 * time.Second
)

// Client - shared room records. A record is written whole and every write is announced
// on the room's updates channel.
type Client struct {
	logger *slog.Logger
	client *redis.Client
	ttl    time.Duration
}

func New(logger *slog.Logger, client *redis.Client, ttl time.Duration) *Client {
	return &Client{
		logger: logger.With("component", "redis_rooms"),
		client: client,
		ttl:    ttl,
	}
}

func RoomKey(code string) string {
	return roomKeyPrefix + code
}

func UpdatesChannel(code string) string {
	return updatesChannelPrefix + code
}

// Create - stores the record unless one already exists under the same code.
func (that *Client) Create(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	created, err := that.client.SetNX(ctx, RoomKey(room.ID), roomJSON, that.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: room %s", apperror.ErrAlreadyExists, room.ID)
	}

	if err = that.client.Publish(ctx, UpdatesChannel(room.ID), roomJSON).Err(); err != nil {
		return fmt.Errorf("failed to announce room: %w", err)
	}

	return nil
}

func (that *Client) Get(ctx context.Context, code string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, RoomKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotFound, code)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

// Put - overwrites the record; the last write wins.
func (that *Client) Put(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, RoomKey(room.ID), roomJSON, that.ttl)
		pipe.Publish(ctx, UpdatesChannel(room.ID), roomJSON)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *Client) Delete(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, RoomKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

// Watch - calls fn with every record written for the room until the returned cancel is called.
func (that *Client) Watch(ctx context.Context, code string, fn func(room *entity.Room)) (func(), error) {
	log := that.logger.With("method", "Watch", "code", code)

	pubsub := that.client.Subscribe(ctx, UpdatesChannel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room updates: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var room entity.Room
			if err := json.Unmarshal([]byte(msg.Payload), &room); err != nil {
				log.Warn("skipping malformed room record", "error", err)
				continue
			}

			fn(&room)
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			log.Debug("failed to close subscription", "error", err)
		}
	}, nil
}

// Publish - mirrors a committed room into its shared record; abandoned rooms are deleted.
func (that *Client) Publish(ctx context.Context, update entity.RoomUpdate) {
	log := that.logger.With("method", "Publish")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	var err error
	if update.Room.IsAbandoned() {
		err = that.Delete(ctx, update.Room.ID)
	} else {
		err = that.Put(ctx, update.Room)
	}

	if err != nil {
		log.Error("failed to mirror room", "code", update.Room.ID, "error", err)
	}
}
