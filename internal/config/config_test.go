package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults fill what the file leaves out", func(t *testing.T) {
		path := writeConfig(t, "log-level: debug\n")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, TransportAuthoritative, conf.Transport)
		assert.Equal(t, 15*time.Minute, conf.Rooms.Expiry)
		assert.Equal(t, 8, conf.Rooms.PairCount)
		assert.Equal(t, 5*time.Second, conf.Replica.StoreTimeout)
		assert.Equal(t, 30*time.Second, conf.WebSocket.DisconnectGrace)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("File values are read", func(t *testing.T) {
		path := writeConfig(t, `
transport: shared-record
rooms:
  pair-count: 2
  faces: [cat, dog]
replica:
  store-timeout: 250ms
`)

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, TransportSharedRecord, conf.Transport)
		assert.Equal(t, 2, conf.Rooms.PairCount)
		assert.Equal(t, []string{"cat", "dog"}, conf.Rooms.Faces)
		assert.Equal(t, 250*time.Millisecond, conf.Replica.StoreTimeout)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "socket-port: \"7000\"\n")
		t.Setenv("SOCKET_PORT", "7001")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "7001", conf.SocketPort)
	})

	t.Run("Unknown transport is rejected", func(t *testing.T) {
		path := writeConfig(t, "transport: carrier-pigeon\n")

		_, err := Load(path)

		require.ErrorIs(t, err, ErrUnknownTransport)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

		require.Error(t, err)
	})
}
