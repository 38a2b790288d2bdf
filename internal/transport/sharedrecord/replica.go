// Package sharedrecord is the client-replicated transport. Every participant
// reads the shared room record, applies the turn rules locally and writes the
// whole record back. Concurrent writers are not serialized: the last write
// wins, so two writers starting from the same version can lose one update.
// When the shared store is unreachable the replica keeps playing on its local
// cache and reports itself offline.
package sharedrecord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/deck"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/memorygame"
	"github.com/rocketscienceinc/memorymatch-backend/internal/pkg"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport"
)

const (
	DefaultStoreTimeout = 5 * time.Second
	maxCodeAttempts     = 10
)

type RecordStore interface {
	Create(ctx context.Context, room *entity.Room) error
	Get(ctx context.Context, code string) (*entity.Room, error)
	Put(ctx context.Context, room *entity.Room) error
	Delete(ctx context.Context, code string) error
	Watch(ctx context.Context, code string, fn func(room *entity.Room)) (func(), error)
}

type Cache interface {
	Save(ctx context.Context, room *entity.Room) error
	Load(ctx context.Context, code string) (*entity.Room, error)
	Delete(ctx context.Context, code string) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, update entity.RoomUpdate) error
	Listen(code string, fn func(entity.RoomUpdate)) (func(), error)
}

type Options struct {
	StoreTimeout time.Duration
	// PollInterval - how often subscribers re-read the record; zero disables polling.
	PollInterval time.Duration
	Expiry       time.Duration
	PairCount    int
	Faces        []string
	Now          func() time.Time
}

// Replica - transport.Adapter over a shared room record.
type Replica struct {
	logger *slog.Logger

	store       RecordStore
	cache       Cache
	broadcaster Broadcaster

	online  atomic.Bool
	options Options
}

var _ transport.Adapter = (*Replica)(nil)

func New(logger *slog.Logger, store RecordStore, cache Cache, broadcaster Broadcaster, options Options) *Replica {
	if options.StoreTimeout <= 0 {
		options.StoreTimeout = DefaultStoreTimeout
	}

	if options.PairCount <= 0 {
		options.PairCount = deck.DefaultPairCount
	}

	if options.Now == nil {
		options.Now = time.Now
	}

	replica := &Replica{
		logger: logger.With("component", "replica"),

		store:       store,
		cache:       cache,
		broadcaster: broadcaster,

		options: options,
	}
	replica.online.Store(true)

	return replica
}

// Online - false while the replica works from its local cache.
func (that *Replica) Online() bool {
	return that.online.Load()
}

func (that *Replica) Open(ctx context.Context, creatorName, mode string) (*transport.Ack, error) {
	log := that.logger.With("method", "Open")

	if !entity.ValidMode(mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", apperror.ErrInvalidMove, mode)
	}

	now := that.options.Now()

	for range maxCodeAttempts {
		code, err := pkg.GenerateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}

		room := entity.NewRoom(code, mode, now)
		if that.options.Expiry > 0 {
			expiresAt := now.Add(that.options.Expiry)
			room.ExpiresAt = &expiresAt
		}

		var (
			player *entity.Player
			events []entity.Event
		)

		if name := strings.TrimSpace(creatorName); name != "" {
			player, events, err = memorygame.Join(room, name, now, that.deal)
			if err != nil {
				return nil, err
			}
		}

		room.Touch()

		err = that.withTimeout(ctx, func(ctx context.Context) error {
			return that.store.Create(ctx, room)
		})

		switch {
		case errors.Is(err, apperror.ErrAlreadyExists):
			continue
		case err != nil:
			log.Warn("shared store unavailable, opening room locally", "error", err)
			that.online.Store(false)
		default:
			that.online.Store(true)
		}

		if cacheErr := that.cache.Save(ctx, room); cacheErr != nil {
			if err != nil {
				return nil, fmt.Errorf("%w: %w", apperror.ErrTransportUnavailable, errors.Join(err, cacheErr))
			}

			log.Warn("failed to cache room", "error", cacheErr)
		}

		update := entity.RoomUpdate{Room: room, Player: player, Events: events}
		that.broadcast(ctx, update)

		return &transport.Ack{RoomUpdate: update, Online: that.online.Load()}, nil
	}

	return nil, fmt.Errorf("failed to find a free room code after %d attempts", maxCodeAttempts)
}

// Deliver - applies the action to the current record, writes it back whole and returns the record as
// the shared store holds it afterwards, which may already include writes of other replicas.
func (that *Replica) Deliver(ctx context.Context, roomCode, playerID string, action entity.Action) (*transport.Ack, error) {
	code := pkg.NormalizeRoomCode(roomCode)

	room, err := that.read(ctx, code)
	if err != nil {
		return nil, err
	}

	working := room.Clone()

	var (
		player *entity.Player
		events []entity.Event
	)

	switch action.Type {
	case entity.ActionJoin:
		name := strings.TrimSpace(action.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: player name is required", apperror.ErrInvalidMove)
		}
		player, events, err = memorygame.Join(working, name, that.options.Now(), that.deal)
	case entity.ActionLeave:
		events, err = memorygame.Leave(working, playerID)
	default:
		events, err = memorygame.Act(working, playerID, action)
	}

	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return &transport.Ack{RoomUpdate: entity.RoomUpdate{Room: room}, Online: that.online.Load()}, nil
	}

	working.Touch()

	if err = that.write(ctx, working); err != nil {
		return nil, err
	}

	that.broadcast(ctx, entity.RoomUpdate{Room: working, Events: events})

	settled := that.reconcile(ctx, working)

	return &transport.Ack{
		RoomUpdate: entity.RoomUpdate{Room: settled, Player: player, Events: events},
		Online:     that.online.Load(),
	}, nil
}

func (that *Replica) Snapshot(ctx context.Context, roomCode string) (*entity.Room, error) {
	return that.read(ctx, pkg.NormalizeRoomCode(roomCode))
}

// Subscribe - merges record changes, broadcasts and polling into one ordered stream.
// A state is passed on only when it is newer than the last one, or differs at the same version
// after a lost concurrent write.
func (that *Replica) Subscribe(ctx context.Context, roomCode, subscriberID string, fn func(entity.RoomUpdate)) (func(), error) {
	log := that.logger.With("method", "Subscribe", "code", roomCode, "subscriber", subscriberID)
	code := pkg.NormalizeRoomCode(roomCode)

	if _, err := that.read(ctx, code); err != nil {
		return nil, err
	}

	dedup := newDeduplicator(fn)
	var cancels []func()

	watchCtx, stopWatch := context.WithCancel(context.WithoutCancel(ctx))
	cancels = append(cancels, stopWatch)

	stop, err := that.store.Watch(watchCtx, code, func(room *entity.Room) {
		dedup.offer(entity.RoomUpdate{Room: room})
	})
	if err != nil {
		log.Warn("record changes unavailable", "error", err)
	} else {
		cancels = append(cancels, stop)
	}

	if that.broadcaster != nil {
		stop, err = that.broadcaster.Listen(code, dedup.offer)
		if err != nil {
			log.Warn("broadcast channel unavailable", "error", err)
		} else {
			cancels = append(cancels, stop)
		}
	}

	if that.options.PollInterval > 0 {
		go that.poll(watchCtx, code, dedup)
	}

	var done atomic.Bool

	return func() {
		if done.Swap(true) {
			return
		}

		for _, cancel := range cancels {
			cancel()
		}
	}, nil
}

func (that *Replica) poll(ctx context.Context, code string, dedup *deduplicator) {
	ticker := time.NewTicker(that.options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			room, err := that.read(ctx, code)
			if err != nil {
				continue
			}

			dedup.offer(entity.RoomUpdate{Room: room})
		}
	}
}

// read - the shared record, or the cached copy when the shared store cannot be reached.
func (that *Replica) read(ctx context.Context, code string) (*entity.Room, error) {
	log := that.logger.With("method", "read", "code", code)

	var room *entity.Room
	err := that.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		room, err = that.store.Get(ctx, code)

		return err
	})

	switch {
	case err == nil:
		that.online.Store(true)

		if cacheErr := that.cache.Save(ctx, room); cacheErr != nil {
			log.Warn("failed to cache room", "error", cacheErr)
		}

		return room, nil
	case errors.Is(err, apperror.ErrNotFound):
		that.online.Store(true)

		return nil, err
	}

	log.Warn("shared store unavailable, using cache", "error", err)
	that.online.Store(false)

	cached, cacheErr := that.cache.Load(ctx, code)
	if cacheErr != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrTransportUnavailable, errors.Join(err, cacheErr))
	}

	return cached, nil
}

func (that *Replica) write(ctx context.Context, room *entity.Room) error {
	log := that.logger.With("method", "write", "code", room.ID)

	err := that.withTimeout(ctx, func(ctx context.Context) error {
		if room.IsAbandoned() {
			return that.store.Delete(ctx, room.ID)
		}

		return that.store.Put(ctx, room)
	})
	if err != nil {
		log.Warn("shared store unavailable, writing to cache only", "error", err)
		that.online.Store(false)
	} else {
		that.online.Store(true)
	}

	var cacheErr error
	if room.IsAbandoned() {
		cacheErr = that.cache.Delete(ctx, room.ID)
	} else {
		cacheErr = that.cache.Save(ctx, room)
	}

	if cacheErr != nil {
		if err != nil {
			return fmt.Errorf("%w: %w", apperror.ErrTransportUnavailable, errors.Join(err, cacheErr))
		}

		log.Warn("failed to cache room", "error", cacheErr)
	}

	return nil
}

// reconcile - re-reads the shared record after a write so the caller sees what the store kept.
func (that *Replica) reconcile(ctx context.Context, written *entity.Room) *entity.Room {
	if !that.online.Load() || written.IsAbandoned() {
		return written
	}

	var shared *entity.Room
	err := that.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		shared, err = that.store.Get(ctx, written.ID)

		return err
	})
	if err != nil {
		return written
	}

	if shared.Version != written.Version {
		that.logger.Debug("record changed by another replica", "method", "reconcile", "code", written.ID,
			"written", written.Version, "shared", shared.Version)
	}

	if cacheErr := that.cache.Save(ctx, shared); cacheErr != nil {
		that.logger.Warn("failed to cache room", "method", "reconcile", "error", cacheErr)
	}

	return shared
}

func (that *Replica) broadcast(ctx context.Context, update entity.RoomUpdate) {
	if that.broadcaster == nil {
		return
	}

	if err := that.broadcaster.Broadcast(ctx, update); err != nil {
		that.logger.Warn("failed to broadcast room update", "method", "broadcast", "code", update.Room.ID, "error", err)
	}
}

func (that *Replica) deal() ([]string, error) {
	if len(that.options.Faces) >= that.options.PairCount {
		if cards, err := deck.FromFaces(that.options.Faces, that.options.PairCount); err == nil {
			return cards, nil
		}
	}

	return deck.Generate(that.options.PairCount)
}

func (that *Replica) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, that.options.StoreTimeout)
	defer cancel()

	return fn(ctx)
}
