package hub

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/pkg"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport"
)

type roomService interface {
	CreateRoom(ctx context.Context, creatorName, mode string) (*entity.RoomUpdate, error)
	SubmitAction(ctx context.Context, code, playerID string, action entity.Action) (*entity.RoomUpdate, error)
	GetRoom(ctx context.Context, code string) (*entity.Room, error)
}

// Adapter - transport.Adapter backed by the room synchronization service.
type Adapter struct {
	hub     *Hub
	service roomService
}

var _ transport.Adapter = (*Adapter)(nil)

func NewAdapter(hub *Hub, service roomService) *Adapter {
	return &Adapter{
		hub:     hub,
		service: service,
	}
}

func (that *Adapter) Open(ctx context.Context, creatorName, mode string) (*transport.Ack, error) {
	update, err := that.service.CreateRoom(ctx, creatorName, mode)
	if err != nil {
		return nil, err
	}

	return &transport.Ack{RoomUpdate: *update, Online: true}, nil
}

func (that *Adapter) Deliver(ctx context.Context, roomCode, playerID string, action entity.Action) (*transport.Ack, error) {
	update, err := that.service.SubmitAction(ctx, roomCode, playerID, action)
	if err != nil {
		return nil, err
	}

	return &transport.Ack{RoomUpdate: *update, Online: true}, nil
}

func (that *Adapter) Subscribe(ctx context.Context, roomCode, subscriberID string, fn func(entity.RoomUpdate)) (func(), error) {
	room, err := that.service.GetRoom(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	return that.hub.Subscribe(room.ID, subscriberID, fn), nil
}

func (that *Adapter) Snapshot(ctx context.Context, roomCode string) (*entity.Room, error) {
	return that.service.GetRoom(ctx, pkg.NormalizeRoomCode(roomCode))
}
