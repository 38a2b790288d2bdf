package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	TransportAuthoritative = "authoritative"
	TransportSharedRecord  = "shared-record"
)

var ErrUnknownTransport = errors.New("unknown sync transport")

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	// Transport - how rooms are synchronized: authoritative or shared-record.
	Transport string `yaml:"transport" env:"SYNC_TRANSPORT" env-default:"authoritative"`

	Redis     Redis     `yaml:"redis"`
	Postgres  Postgres  `yaml:"postgres"`
	NATS      NATS      `yaml:"nats"`
	Rooms     Rooms     `yaml:"rooms"`
	Replica   Replica   `yaml:"replica"`
	WebSocket WebSocket `yaml:"websocket"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// RecordTTL - lifetime of a shared room record; zero keeps it until deleted.
	RecordTTL time.Duration `yaml:"record-ttl" env:"REDIS_RECORD_TTL" env-default:"24h"`
}

// Postgres - game history and card faces. Disabled when DSN is empty.
type Postgres struct {
	DSN     string `yaml:"dsn" env:"POSTGRES_DSN"`
	Migrate bool   `yaml:"migrate" env:"POSTGRES_MIGRATE" env-default:"true"`
}

// NATS - room broadcast channel. Disabled when URL is empty.
type NATS struct {
	URL  string `yaml:"url" env:"NATS_URL"`
	Name string `yaml:"name" env:"NATS_NAME" env-default:"memorymatch"`
}

type Rooms struct {
	Expiry        time.Duration `yaml:"expiry" env:"ROOM_EXPIRY" env-default:"15m"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"ROOM_SWEEP_INTERVAL" env-default:"1m"`
	PairCount     int           `yaml:"pair-count" env:"ROOM_PAIR_COUNT" env-default:"8"`
	// Faces - catalogue used when postgres is not configured or has fewer faces than pairs.
	Faces []string `yaml:"faces" env:"ROOM_FACES" env-separator:","`
}

type Replica struct {
	StoreTimeout time.Duration `yaml:"store-timeout" env:"REPLICA_STORE_TIMEOUT" env-default:"5s"`
	PollInterval time.Duration `yaml:"poll-interval" env:"REPLICA_POLL_INTERVAL" env-default:"0s"`
	CachePath    string        `yaml:"cache-path" env:"REPLICA_CACHE_PATH" env-default:"memorymatch-cache.db"`
}

type WebSocket struct {
	DisconnectGrace time.Duration `yaml:"disconnect-grace" env:"WS_DISCONNECT_GRACE" env-default:"30s"`
	SendBuffer      int           `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"64"`
	PongWait        time.Duration `yaml:"pong-wait" env:"WS_PONG_WAIT" env-default:"60s"`
	WriteWait       time.Duration `yaml:"write-wait" env:"WS_WRITE_WAIT" env-default:"10s"`
	MaxMessageSize  int64         `yaml:"max-message-size" env:"WS_MAX_MESSAGE_SIZE" env-default:"4096"`
}

// Load - reads the config file, then environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) Validate() error {
	switch that.Transport {
	case TransportAuthoritative, TransportSharedRecord:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, that.Transport)
	}

	if that.Rooms.PairCount <= 0 {
		return fmt.Errorf("rooms.pair-count must be positive, got %d", that.Rooms.PairCount)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
