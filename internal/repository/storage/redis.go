package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisStorage struct {
	Connection *redis.Client
}

// NewRedisStorage - connects and fails when redis does not answer a ping.
func NewRedisStorage(ctx context.Context, addr, password string, db int) (*RedisStorage, error) {
	redisStorage := ConnectRedis(addr, password, db)

	if err := redisStorage.Ping(ctx); err != nil {
		_ = redisStorage.Close()
		return nil, err
	}

	return redisStorage, nil
}

// ConnectRedis - a client that dials on first use; commands fail until redis is reachable.
func ConnectRedis(addr, password string, db int) *RedisStorage {
	return &RedisStorage{Connection: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (that *RedisStorage) Ping(ctx context.Context) error {
	if _, err := that.Connection.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

func (that *RedisStorage) Close() error {
	return that.Connection.Close()
}
