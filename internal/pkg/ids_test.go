package pkg

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]struct{})

	for range 100 {
		code, err := GenerateRoomCode()
		require.NoError(t, err)

		assert.Len(t, code, RoomCodeLength)
		assert.True(t, ValidRoomCode(code), code)
		seen[code] = struct{}{}
	}

	assert.Greater(t, len(seen), 90)
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "ABCD1234", NormalizeRoomCode(" abcd1234 "))
	assert.True(t, ValidRoomCode(NormalizeRoomCode("abcd1234")))
	assert.False(t, ValidRoomCode("abcd1234"))
	assert.False(t, ValidRoomCode("ABC"))
	assert.False(t, ValidRoomCode("ABCD-234"))
}

func TestGenerateNewSessionID(t *testing.T) {
	id := GenerateNewSessionID()

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, GenerateNewSessionID())
}
