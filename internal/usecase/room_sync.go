package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/deck"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/memorygame"
	"github.com/rocketscienceinc/memorymatch-backend/internal/pkg"
)

const maxCodeAttempts = 10

var errNothingChanged = errors.New("nothing changed")

type roomStore interface {
	Create(code, mode string, now time.Time) (*entity.Room, error)
	Get(code string) (*entity.Room, error)
	Update(code string, mutate func(room *entity.Room) error, onCommit func(room *entity.Room)) (*entity.Room, error)
	ExpireOlderThan(age time.Duration, now time.Time) []*entity.Room
}

type publisher interface {
	Publish(ctx context.Context, update entity.RoomUpdate)
}

type historyRecorder interface {
	Record(ctx context.Context, update entity.RoomUpdate) error
}

type faceProvider interface {
	Faces(ctx context.Context) ([]string, error)
}

type RoomSyncOptions struct {
	Expiry    time.Duration
	PairCount int
	// Faces is used when the face provider is unavailable.
	Faces []string
	Now   func() time.Time
}

// RoomSync - the single entry point for creating, joining, leaving and playing rooms.
type RoomSync struct {
	logger *slog.Logger

	store     roomStore
	publisher publisher
	recorder  historyRecorder
	faces     faceProvider

	options RoomSyncOptions
}

func NewRoomSync(logger *slog.Logger, store roomStore, publisher publisher, recorder historyRecorder, faces faceProvider, options RoomSyncOptions) *RoomSync {
	if options.Now == nil {
		options.Now = time.Now
	}

	if options.PairCount <= 0 {
		options.PairCount = deck.DefaultPairCount
	}

	return &RoomSync{
		logger: logger.With("component", "room_sync"),

		store:     store,
		publisher: publisher,
		recorder:  recorder,
		faces:     faces,

		options: options,
	}
}

// CreateRoom - opens a room under a fresh code; the creator takes the first seat when a name is given.
func (that *RoomSync) CreateRoom(ctx context.Context, creatorName, mode string) (*entity.RoomUpdate, error) {
	log := that.logger.With("method", "CreateRoom")

	if !entity.ValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", apperror.ErrInvalidMove, mode)
	}

	now := that.options.Now()

	var room *entity.Room
	for attempt := 0; room == nil; attempt++ {
		if attempt == maxCodeAttempts {
			return nil, fmt.Errorf("failed to find a free room code after %d attempts", attempt)
		}

		code, err := pkg.GenerateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}

		room, err = that.store.Create(code, mode, now)
		if errors.Is(err, apperror.ErrAlreadyExists) {
			log.Debug("room code collision", "code", code)
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
	}

	deal := that.generated()
	if strings.TrimSpace(creatorName) != "" && room.Capacity() == 1 {
		deal = that.dealer(ctx)
	}

	update, err := that.commit(ctx, room.ID, func(room *entity.Room) (*entity.Player, []entity.Event, error) {
		if that.options.Expiry > 0 {
			expiresAt := room.CreatedAt.Add(that.options.Expiry)
			room.ExpiresAt = &expiresAt
		}

		name := strings.TrimSpace(creatorName)
		if name == "" {
			return nil, nil, nil
		}

		return memorygame.Join(room, name, now, deal)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open room: %w", err)
	}

	log.Info("room created", "code", update.Room.ID, "mode", update.Room.Mode)

	return update, nil
}

// JoinRoom - seats a new player; the game starts when the last seat fills.
func (that *RoomSync) JoinRoom(ctx context.Context, code, name string) (*entity.RoomUpdate, error) {
	code = pkg.NormalizeRoomCode(code)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", apperror.ErrInvalidMove)
	}

	current, err := that.store.Get(code)
	if err != nil {
		return nil, err
	}

	deal := that.generated()
	if len(current.Players)+1 >= current.Capacity() {
		deal = that.dealer(ctx)
	}

	update, err := that.commit(ctx, code, func(room *entity.Room) (*entity.Player, []entity.Event, error) {
		return memorygame.Join(room, name, that.options.Now(), deal)
	})
	if err != nil {
		return nil, err
	}

	that.logger.Info("player joined", "method", "JoinRoom", "code", code, "player", update.Player.ID)

	return update, nil
}

// LeaveRoom - unseats the player; the last player leaving abandons the room.
func (that *RoomSync) LeaveRoom(ctx context.Context, code, playerID string) (*entity.RoomUpdate, error) {
	code = pkg.NormalizeRoomCode(code)

	update, err := that.commit(ctx, code, func(room *entity.Room) (*entity.Player, []entity.Event, error) {
		events, err := memorygame.Leave(room, playerID)
		return nil, events, err
	})
	if err != nil {
		return nil, err
	}

	that.logger.Info("player left", "method", "LeaveRoom", "code", code, "player", playerID, "status", update.Room.Status)

	return update, nil
}

// SubmitAction - applies an action of a seated player. A retried action that was already applied changes nothing.
func (that *RoomSync) SubmitAction(ctx context.Context, code, playerID string, action entity.Action) (*entity.RoomUpdate, error) {
	switch action.Type {
	case entity.ActionJoin:
		return that.JoinRoom(ctx, code, action.Name)
	case entity.ActionLeave:
		return that.LeaveRoom(ctx, code, playerID)
	}

	code = pkg.NormalizeRoomCode(code)

	update, err := that.commit(ctx, code, func(room *entity.Room) (*entity.Player, []entity.Event, error) {
		events, err := memorygame.Act(room, playerID, action)
		if err == nil && len(events) == 0 {
			return nil, nil, errNothingChanged
		}

		return nil, events, err
	})

	if errors.Is(err, errNothingChanged) {
		room, err := that.store.Get(code)
		if err != nil {
			return nil, err
		}

		return &entity.RoomUpdate{Room: room}, nil
	}

	if err != nil {
		return nil, err
	}

	return update, nil
}

func (that *RoomSync) GetRoom(_ context.Context, code string) (*entity.Room, error) {
	return that.store.Get(pkg.NormalizeRoomCode(code))
}

// SweepExpired - removes waiting rooms older than the configured expiry.
func (that *RoomSync) SweepExpired(ctx context.Context) []*entity.Room {
	log := that.logger.With("method", "SweepExpired")

	if that.options.Expiry <= 0 {
		return nil
	}

	expired := that.store.ExpireOlderThan(that.options.Expiry, that.options.Now())

	for _, room := range expired {
		update := entity.RoomUpdate{
			Room:   room,
			Events: []entity.Event{{Type: entity.EventRoomAbandoned, Player: -1}},
		}

		that.publish(ctx, update)
		that.record(ctx, update)
	}

	if len(expired) > 0 {
		log.Info("expired rooms removed", "count", len(expired))
	}

	return expired
}

// RunSweeper - calls SweepExpired every interval until ctx is done.
func (that *RoomSync) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.SweepExpired(ctx)
		}
	}
}

// commit runs the mutation under the room lock, publishes the result before the lock is released
// and records it afterwards.
func (that *RoomSync) commit(ctx context.Context, code string, mutate func(room *entity.Room) (*entity.Player, []entity.Event, error)) (*entity.RoomUpdate, error) {
	var (
		player *entity.Player
		events []entity.Event
	)

	room, err := that.store.Update(code, func(room *entity.Room) error {
		var err error
		player, events, err = mutate(room)

		return err
	}, func(room *entity.Room) {
		that.publish(ctx, entity.RoomUpdate{Room: room, Events: events})
	})
	if err != nil {
		return nil, err
	}

	update := &entity.RoomUpdate{Room: room, Player: player, Events: events}
	that.record(ctx, *update)

	return update, nil
}

func (that *RoomSync) generated() memorygame.DeckFunc {
	return func() ([]string, error) {
		return deck.Generate(that.options.PairCount)
	}
}

// dealer fetches the face catalogue up front so no I/O happens under the room lock.
func (that *RoomSync) dealer(ctx context.Context) memorygame.DeckFunc {
	log := that.logger.With("method", "dealer")
	pairs := that.options.PairCount

	var faces []string
	if that.faces != nil {
		provided, err := that.faces.Faces(ctx)
		if err != nil {
			log.Warn("card faces unavailable, using configured faces", "error", err)
		}

		faces = provided
	}

	if len(faces) < pairs {
		faces = that.options.Faces
	}

	return func() ([]string, error) {
		if len(faces) >= pairs {
			cards, err := deck.FromFaces(faces, pairs)
			if err == nil {
				return cards, nil
			}

			log.Warn("failed to deal from faces, using generated deck", "error", err)
		}

		return deck.Generate(pairs)
	}
}

func (that *RoomSync) publish(ctx context.Context, update entity.RoomUpdate) {
	if that.publisher == nil {
		return
	}

	that.publisher.Publish(ctx, update)
}

func (that *RoomSync) record(ctx context.Context, update entity.RoomUpdate) {
	if that.recorder == nil {
		return
	}

	if err := that.recorder.Record(ctx, update); err != nil {
		that.logger.Error("failed to record room history", "method", "record", "code", update.Room.ID, "error", err)
	}
}
