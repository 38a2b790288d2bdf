package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport"
)

const codeBadRequest = "BAD_REQUEST"

type createRoomRequest struct {
	PlayerName string `json:"playerName"`
	Mode       string `json:"mode"`
}

type joinRoomRequest struct {
	PlayerName string `json:"playerName" binding:"required"`
}

type leaveRoomRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

type roomView struct {
	RoomCode  string            `json:"roomCode"`
	Mode      string            `json:"mode"`
	Players   []*entity.Player  `json:"players"`
	GameState *entity.GameState `json:"gameState,omitempty"`
	Status    string            `json:"status"`
	Winner    string            `json:"winner,omitempty"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

// ackView - Player is set for the caller who was just seated and carries its seat token.
type ackView struct {
	Room   roomView       `json:"room"`
	Player *entity.Player `json:"player,omitempty"`
	Events []entity.Event `json:"events,omitempty"`
	Online bool           `json:"online"`
}

type errorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newRoomView(room *entity.Room) roomView {
	masked := room.Masked()

	return roomView{
		RoomCode:  masked.ID,
		Mode:      masked.Mode,
		Players:   masked.Players,
		GameState: masked.GameState,
		Status:    masked.Status,
		Winner:    masked.Winner,
		Version:   masked.Version,
		CreatedAt: masked.CreatedAt,
		ExpiresAt: masked.ExpiresAt,
	}
}

func newAckView(ack *transport.Ack) ackView {
	return ackView{
		Room:   newRoomView(ack.Room),
		Player: ack.Player,
		Events: ack.Events,
		Online: ack.Online,
	}
}

func (that *Server) handleCreateRoom(ctx *gin.Context) {
	var req createRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		that.badRequest(ctx, err)
		return
	}

	ack, err := that.adapter.Open(ctx.Request.Context(), strings.TrimSpace(req.PlayerName), req.Mode)
	if err != nil {
		that.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, newAckView(ack))
}

func (that *Server) handleGetRoom(ctx *gin.Context) {
	room, err := that.adapter.Snapshot(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		that.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, newRoomView(room))
}

func (that *Server) handleJoinRoom(ctx *gin.Context) {
	var req joinRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		that.badRequest(ctx, err)
		return
	}

	ack, err := that.adapter.Deliver(ctx.Request.Context(), ctx.Param("code"), "", entity.Join(req.PlayerName))
	if err != nil {
		that.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, newAckView(ack))
}

func (that *Server) handleLeaveRoom(ctx *gin.Context) {
	var req leaveRoomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		that.badRequest(ctx, err)
		return
	}

	room, err := that.adapter.Snapshot(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		that.fail(ctx, err)
		return
	}

	if !room.SeatedWith(req.PlayerID, req.Token) {
		that.fail(ctx, fmt.Errorf("%w: %s", apperror.ErrNotAuthorized, req.PlayerID))
		return
	}

	ack, err := that.adapter.Deliver(ctx.Request.Context(), room.ID, req.PlayerID, entity.Leave())
	if err != nil {
		that.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, newAckView(ack))
}

func (that *Server) badRequest(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, errorView{Code: codeBadRequest, Message: err.Error()})
}

func (that *Server) fail(ctx *gin.Context, err error) {
	code := apperror.Code(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrRoomFull), errors.Is(err, apperror.ErrAlreadyExists), errors.Is(err, apperror.ErrOutOfTurn):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidMove):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrTransportUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "path", ctx.FullPath(), "error", err)
	}

	ctx.AbortWithStatusJSON(status, errorView{Code: code, Message: err.Error()})
}
