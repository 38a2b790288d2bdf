package websocket

import (
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

const (
	actionCreateRoom  = "CREATE_ROOM"
	actionJoinRoom    = "JOIN_ROOM"
	actionFlipCard    = "FLIP_CARD"
	actionClaimMatch  = "CLAIM_MATCH"
	actionAdvanceTurn = "ADVANCE_TURN"
	actionGameEnd     = "GAME_END"
	actionLeaveRoom   = "LEAVE_ROOM"

	actionRoomState = "ROOM_STATE"
	actionError     = "ERROR"
)

const codeBadRequest = "BAD_REQUEST"

var errBadRequest = errors.New("bad request")

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Request - union of the payloads clients send; each action reads its own fields.
type Request struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
	Token      string `json:"token"`
	Mode       string `json:"mode"`

	Position  *int   `json:"position"`
	Positions []int  `json:"positions"`
	NextIndex *int   `json:"nextPlayerIndex"`
	Winner    string `json:"winner"`
}

type RoomState struct {
	RoomCode  string            `json:"roomCode"`
	Mode      string            `json:"mode"`
	Players   []*entity.Player  `json:"players"`
	GameState *entity.GameState `json:"gameState,omitempty"`
	Status    string            `json:"status"`
	Winner    string            `json:"winner,omitempty"`
	Version   int64             `json:"version"`
	Events    []entity.Event    `json:"events,omitempty"`
	You       string            `json:"you,omitempty"`
	Token     string            `json:"token,omitempty"`
	Online    bool              `json:"online"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newRoomState - the room as a player may see it: face-down cards have no value.
func newRoomState(update entity.RoomUpdate, you, token string, online bool) RoomState {
	room := update.Room.Masked()

	return RoomState{
		RoomCode:  room.ID,
		Mode:      room.Mode,
		Players:   room.Players,
		GameState: room.GameState,
		Status:    room.Status,
		Winner:    room.Winner,
		Version:   room.Version,
		Events:    update.Events,
		You:       you,
		Token:     token,
		Online:    online,
	}
}

func newErrorPayload(err error) ErrorPayload {
	code := apperror.Code(err)
	if errors.Is(err, errBadRequest) {
		code = codeBadRequest
	}

	return ErrorPayload{Code: code, Message: err.Error()}
}
