package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/memorymatch-backend/internal/config"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/repository"
	"github.com/rocketscienceinc/memorymatch-backend/internal/repository/storage"
	"github.com/rocketscienceinc/memorymatch-backend/internal/repository/storage/migrations"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport/hub"
	natstransport "github.com/rocketscienceinc/memorymatch-backend/internal/transport/nats"
	redistransport "github.com/rocketscienceinc/memorymatch-backend/internal/transport/redis"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport/sharedrecord"
	"github.com/rocketscienceinc/memorymatch-backend/internal/usecase"
	"github.com/rocketscienceinc/memorymatch-backend/transport/rest"
	"github.com/rocketscienceinc/memorymatch-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type historyRecorder interface {
	Record(ctx context.Context, update entity.RoomUpdate) error
}

type faceProvider interface {
	Faces(ctx context.Context) ([]string, error)
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisStorage, err := openRedis(ctx, log, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	records := redistransport.New(logger, redisStorage.Connection, conf.Redis.RecordTTL)

	var broadcaster *natstransport.Broadcaster
	if conf.NATS.URL != "" {
		conn, err := natstransport.Connect(conf.NATS.URL, conf.NATS.Name)
		if err != nil {
			return fmt.Errorf("could not connect to nats: %w", err)
		}
		defer conn.Close()

		broadcaster = natstransport.NewBroadcaster(logger, conn)
	}

	var (
		recorder historyRecorder
		faces    faceProvider
	)

	if conf.Postgres.DSN != "" {
		postgresStorage, err := openPostgres(ctx, logger, conf.Postgres)
		if err != nil {
			return err
		}
		defer postgresStorage.Close()

		cardFaces := repository.NewCardFaces(postgresStorage.Pool)
		if err = cardFaces.Seed(ctx, conf.Rooms.Faces); err != nil {
			log.Warn("could not seed card faces", "error", err)
		}

		recorder = repository.NewHistoryRecorder(postgresStorage.Pool)
		faces = cardFaces
	}

	var adapter transport.Adapter

	switch conf.Transport {
	case config.TransportSharedRecord:
		cache, err := storage.NewSQLiteStorage(conf.Replica.CachePath)
		if err != nil {
			return fmt.Errorf("could not open room cache: %w", err)
		}

		defer func() {
			if err = cache.Close(); err != nil {
				log.Error("could not close room cache", "error", err)
			}
		}()

		if err = cache.Init(ctx); err != nil {
			return fmt.Errorf("could not init room cache: %w", err)
		}

		adapter = newReplica(ctx, logger, conf, records, repository.NewRoomCache(cache.Connection), broadcaster, faces)
	default:
		h := hub.New(logger)

		publishers := transport.Fanout{h, records}
		if broadcaster != nil {
			publishers = append(publishers, broadcaster)
		}

		roomSync := usecase.NewRoomSync(logger, repository.NewRoomStore(), publishers, recorder, faces, usecase.RoomSyncOptions{
			Expiry:    conf.Rooms.Expiry,
			PairCount: conf.Rooms.PairCount,
			Faces:     conf.Rooms.Faces,
		})

		go roomSync.RunSweeper(ctx, conf.Rooms.SweepInterval)

		adapter = hub.NewAdapter(h, roomSync)
	}

	log.Info("Rooms are synchronized", "transport", conf.Transport)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.New(logger, adapter).Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, adapter, websocket.Options{
			DisconnectGrace: conf.WebSocket.DisconnectGrace,
			SendBuffer:      conf.WebSocket.SendBuffer,
			WriteWait:       conf.WebSocket.WriteWait,
			PongWait:        conf.WebSocket.PongWait,
			MaxMessageSize:  conf.WebSocket.MaxMessageSize,
		})
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// openRedis - the authoritative transport needs redis at startup. A replica starts on its cache
// and goes online once redis answers.
func openRedis(ctx context.Context, log *slog.Logger, conf *config.Config) (*storage.RedisStorage, error) {
	addr := conf.Redis.GetRedisAddr()
	if addr == "" {
		return nil, ErrAddrNotFound
	}

	if conf.Transport != config.TransportSharedRecord {
		redisStorage, err := storage.NewRedisStorage(ctx, addr, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return redisStorage, nil
	}

	redisStorage := storage.ConnectRedis(addr, conf.Redis.Password, conf.Redis.DB)

	pingCtx, cancel := context.WithTimeout(ctx, conf.Replica.StoreTimeout)
	defer cancel()

	if err := redisStorage.Ping(pingCtx); err != nil {
		log.Warn("redis is unreachable, rooms are served from the local cache", "addr", addr, "error", err)
	}

	return redisStorage, nil
}

func openPostgres(ctx context.Context, logger *slog.Logger, conf config.Postgres) (*storage.PostgresStorage, error) {
	if conf.Migrate {
		migrator, err := migrations.New(conf.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("could not prepare migrations: %w", err)
		}

		err = migrator.Up()
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("could not close migrator", "error", closeErr)
		}

		if err != nil {
			return nil, fmt.Errorf("could not migrate database: %w", err)
		}
	}

	postgresStorage, err := storage.NewPostgresStorage(ctx, conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres storage: %w", err)
	}

	return postgresStorage, nil
}

// newReplica - the shared-record adapter. Card faces are read once; the configured catalogue is the fallback.
func newReplica(
	ctx context.Context,
	logger *slog.Logger,
	conf *config.Config,
	records sharedrecord.RecordStore,
	cache sharedrecord.Cache,
	broadcaster *natstransport.Broadcaster,
	faces faceProvider,
) *sharedrecord.Replica {
	catalogue := conf.Rooms.Faces
	if faces != nil {
		provided, err := faces.Faces(ctx)
		if err != nil {
			logger.Warn("could not load card faces", "error", err)
		}

		if len(provided) >= conf.Rooms.PairCount {
			catalogue = provided
		}
	}

	var channel sharedrecord.Broadcaster = sharedrecord.NewLocalBroadcast()
	if broadcaster != nil {
		channel = broadcaster
	}

	return sharedrecord.New(logger, records, cache, channel, sharedrecord.Options{
		StoreTimeout: conf.Replica.StoreTimeout,
		PollInterval: conf.Replica.PollInterval,
		Expiry:       conf.Rooms.Expiry,
		PairCount:    conf.Rooms.PairCount,
		Faces:        catalogue,
	})
}
