package websocket

import (
	"context"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/memorymatch-backend/internal/apperror"
	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/pkg"
)

func (that *Server) handleCreateRoom(ctx context.Context, sess *session, req Request) error {
	log := that.logger.With("method", "handleCreateRoom", "session", sess.id)

	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		return fmt.Errorf("%w: playerName is required", errBadRequest)
	}

	if err := that.vacant(sess, "", ""); err != nil {
		return err
	}

	ack, err := that.adapter.Open(ctx, name, req.Mode)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	if err = that.take(ctx, sess, ack.Player.ID, ack.RoomUpdate, ack.Online); err != nil {
		return err
	}

	log.Info("room created", "code", ack.Room.ID, "player", ack.Player.ID)

	return nil
}

// handleJoinRoom - seats a new player, or reconnects a seated one when playerId and its token are given.
func (that *Server) handleJoinRoom(ctx context.Context, sess *session, req Request) error {
	log := that.logger.With("method", "handleJoinRoom", "session", sess.id)

	code := pkg.NormalizeRoomCode(req.RoomCode)
	if !pkg.ValidRoomCode(code) {
		return fmt.Errorf("%w: %q", apperror.ErrNotFound, req.RoomCode)
	}

	if err := that.vacant(sess, code, req.PlayerID); err != nil {
		return err
	}

	if req.PlayerID != "" {
		room, err := that.adapter.Snapshot(ctx, code)
		if err != nil {
			return err
		}

		if !room.SeatedWith(req.PlayerID, req.Token) {
			return fmt.Errorf("%w: %s", apperror.ErrNotAuthorized, req.PlayerID)
		}

		log.Info("player reconnected", "code", code, "player", req.PlayerID)

		return that.take(ctx, sess, req.PlayerID, entity.RoomUpdate{Room: room}, that.online(true))
	}

	name := strings.TrimSpace(req.PlayerName)
	if name == "" {
		return fmt.Errorf("%w: playerName is required", errBadRequest)
	}

	ack, err := that.adapter.Deliver(ctx, code, "", entity.Join(name))
	if err != nil {
		return err
	}

	log.Info("player joined", "code", code, "player", ack.Player.ID)

	return that.take(ctx, sess, ack.Player.ID, ack.RoomUpdate, ack.Online)
}

func (that *Server) handleFlipCard(ctx context.Context, sess *session, req Request) error {
	if req.Position == nil {
		return fmt.Errorf("%w: position is required", errBadRequest)
	}

	return that.act(ctx, sess, req, entity.FlipCard(*req.Position))
}

func (that *Server) handleClaimMatch(ctx context.Context, sess *session, req Request) error {
	if len(req.Positions) == 0 {
		return fmt.Errorf("%w: positions are required", errBadRequest)
	}

	return that.act(ctx, sess, req, entity.ClaimMatch(req.Positions...))
}

func (that *Server) handleAdvanceTurn(ctx context.Context, sess *session, req Request) error {
	if req.NextIndex == nil {
		return fmt.Errorf("%w: nextPlayerIndex is required", errBadRequest)
	}

	return that.act(ctx, sess, req, entity.AdvanceTurn(*req.NextIndex))
}

func (that *Server) handleGameEnd(ctx context.Context, sess *session, req Request) error {
	return that.act(ctx, sess, req, entity.EndGame(req.Winner))
}

func (that *Server) handleLeaveRoom(ctx context.Context, sess *session, req Request) error {
	if err := that.act(ctx, sess, req, entity.Leave()); err != nil {
		return err
	}

	code, playerID := sess.detach()
	that.release(playerID, sess)

	that.logger.Info("player left", "method", "handleLeaveRoom", "code", code, "player", playerID)

	return nil
}

// act - delivers the action of the connection's player and answers with the resulting state.
func (that *Server) act(ctx context.Context, sess *session, req Request, action entity.Action) error {
	code, playerID := sess.seat()
	if playerID == "" {
		return fmt.Errorf("%w: join a room first", apperror.ErrNotAuthorized)
	}

	if req.RoomCode != "" && pkg.NormalizeRoomCode(req.RoomCode) != code {
		return fmt.Errorf("%w: not seated in room %s", apperror.ErrNotAuthorized, req.RoomCode)
	}

	ack, err := that.adapter.Deliver(ctx, code, playerID, action)
	if err != nil {
		return err
	}

	sess.push(ack.RoomUpdate, ack.Online, true)

	return nil
}

// take - seats the connection, subscribes it to the room and sends the room state.
func (that *Server) take(ctx context.Context, sess *session, playerID string, update entity.RoomUpdate, online bool) error {
	code := update.Room.ID

	sess.attach(code, playerID)

	unsubscribe, err := that.adapter.Subscribe(ctx, code, playerID, func(update entity.RoomUpdate) {
		sess.push(update, that.online(true), false)
	})
	if err != nil {
		sess.detach()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	sess.subscribed(unsubscribe)
	that.claim(playerID, sess)

	sess.push(update, online, true)

	// changes committed between the action and the subscription
	if room, err := that.adapter.Snapshot(ctx, code); err == nil {
		sess.push(entity.RoomUpdate{Room: room}, online, false)
	}

	return nil
}

// vacant - a connection holds one seat. Only a reconnect to that same seat is let through until it leaves.
func (that *Server) vacant(sess *session, code, playerID string) error {
	seatedCode, seatedPlayer := sess.seat()
	if seatedCode == "" || (seatedCode == code && playerID != "" && playerID == seatedPlayer) {
		return nil
	}

	return fmt.Errorf("%w: already seated in room %s, leave it first", errBadRequest, seatedCode)
}
