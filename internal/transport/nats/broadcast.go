// Package nats carries room updates between processes over NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

const subjectPrefix = "rooms."

func Subject(code string) string {
	return subjectPrefix + code
}

// Connect - opens a connection that keeps reconnecting in the background.
func Connect(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return conn, nil
}

// Broadcaster - publishes room updates on the room subject and listens to them.
type Broadcaster struct {
	logger *slog.Logger
	conn   *nats.Conn
}

func NewBroadcaster(logger *slog.Logger, conn *nats.Conn) *Broadcaster {
	return &Broadcaster{
		logger: logger.With("component", "nats_broadcast"),
		conn:   conn,
	}
}

func (that *Broadcaster) Broadcast(_ context.Context, update entity.RoomUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("could not marshal room update: %w", err)
	}

	if err = that.conn.Publish(Subject(update.Room.ID), data); err != nil {
		return fmt.Errorf("failed to publish room update: %w", err)
	}

	return nil
}

func (that *Broadcaster) Listen(code string, fn func(entity.RoomUpdate)) (func(), error) {
	log := that.logger.With("method", "Listen", "code", code)

	sub, err := that.conn.Subscribe(Subject(code), func(msg *nats.Msg) {
		var update entity.RoomUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil || update.Room == nil {
			log.Warn("skipping malformed room update", "error", err)
			return
		}

		fn(update)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Subject(code), err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Debug("failed to unsubscribe", "error", err)
		}
	}, nil
}

// Publish - fans a committed room update out to other processes.
func (that *Broadcaster) Publish(ctx context.Context, update entity.RoomUpdate) {
	if err := that.Broadcast(ctx, update); err != nil {
		that.logger.Error("failed to broadcast room update", "method", "Publish", "code", update.Room.ID, "error", err)
	}
}
