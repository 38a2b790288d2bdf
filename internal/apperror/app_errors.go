package apperror

import "errors"

var (
	ErrNotFound             = errors.New("room not found")
	ErrRoomFull             = errors.New("room is full")
	ErrAlreadyExists        = errors.New("room already exists")
	ErrInvalidMove          = errors.New("invalid move")
	ErrOutOfTurn            = errors.New("it's not your turn")
	ErrNotAuthorized        = errors.New("player is not seated in this room")
	ErrTransportUnavailable = errors.New("transport unavailable")
)

const (
	CodeNotFound             = "NOT_FOUND"
	CodeRoomFull             = "ROOM_FULL"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeInvalidMove          = "INVALID_MOVE"
	CodeOutOfTurn            = "OUT_OF_TURN"
	CodeNotAuthorized        = "NOT_AUTHORIZED"
	CodeTransportUnavailable = "TRANSPORT_UNAVAILABLE"
	CodeInternal             = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, CodeNotFound},
	{ErrRoomFull, CodeRoomFull},
	{ErrAlreadyExists, CodeAlreadyExists},
	{ErrInvalidMove, CodeInvalidMove},
	{ErrOutOfTurn, CodeOutOfTurn},
	{ErrNotAuthorized, CodeNotAuthorized},
	{ErrTransportUnavailable, CodeTransportUnavailable},
}

// Code - maps an error to its wire-level code, CodeInternal when the error is not part of the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeInternal
}
