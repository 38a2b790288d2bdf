package pkg

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	RoomCodeLength = 8
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode - returns a random human-typeable room code of uppercase letters and digits.
func GenerateRoomCode() (string, error) {
	var sb strings.Builder
	sb.Grow(RoomCodeLength)

	limit := big.NewInt(int64(len(roomCodeChars)))
	for range RoomCodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}

		sb.WriteByte(roomCodeChars[n.Int64()])
	}

	return sb.String(), nil
}

// NormalizeRoomCode - clients may type codes in any case.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode - reports whether code has the shape produced by GenerateRoomCode.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for i := range len(code) {
		if !strings.ContainsRune(roomCodeChars, rune(code[i])) {
			return false
		}
	}

	return true
}

// GenerateNewSessionID - generates a new unique session id.
func GenerateNewSessionID() string {
	return uuid.NewString()
}
