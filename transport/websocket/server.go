package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
	"github.com/rocketscienceinc/memorymatch-backend/internal/pkg"
	"github.com/rocketscienceinc/memorymatch-backend/internal/transport"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 4096
	defaultSendBuffer     = 64
	shutdownTimeout       = 5 * time.Second
)

type Options struct {
	// DisconnectGrace - how long a dropped player keeps the seat; zero leaves at once.
	DisconnectGrace time.Duration
	SendBuffer      int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
}

type handler func(ctx context.Context, sess *session, req Request) error

// onlineReporter - adapters that can fall back to a local copy report whether they are online.
type onlineReporter interface {
	Online() bool
}

type Server struct {
	logger   *slog.Logger
	adapter  transport.Adapter
	upgrader websocket.Upgrader
	options  Options

	handlers map[string]handler

	mu      sync.Mutex
	seats   map[string]*session
	pending map[string]*time.Timer
}

func New(logger *slog.Logger, adapter transport.Adapter, options Options) *Server {
	if options.SendBuffer <= 0 {
		options.SendBuffer = defaultSendBuffer
	}

	if options.WriteWait <= 0 {
		options.WriteWait = defaultWriteWait
	}

	if options.PongWait <= 0 {
		options.PongWait = defaultPongWait
	}

	if options.PingPeriod <= 0 || options.PingPeriod >= options.PongWait {
		options.PingPeriod = options.PongWait * 9 / 10
	}

	if options.MaxMessageSize <= 0 {
		options.MaxMessageSize = defaultMaxMessageSize
	}

	server := &Server{
		logger:  logger.With("component", "websocket"),
		adapter: adapter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		options: options,

		handlers: make(map[string]handler),
		seats:    make(map[string]*session),
		pending:  make(map[string]*time.Timer),
	}

	server.handlers[actionCreateRoom] = server.handleCreateRoom
	server.handlers[actionJoinRoom] = server.handleJoinRoom
	server.handlers[actionFlipCard] = server.handleFlipCard
	server.handlers[actionClaimMatch] = server.handleClaimMatch
	server.handlers[actionAdvanceTurn] = server.handleAdvanceTurn
	server.handlers[actionGameEnd] = server.handleGameEnd
	server.handlers[actionLeaveRoom] = server.handleLeaveRoom

	return server
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	sess := newSession(pkg.GenerateNewSessionID(), conn, that.options.SendBuffer, that.logger)
	log.Info("WebSocket connection established", "session", sess.id)

	go sess.writePump(that.options)

	that.readPump(req.Context(), sess)

	sess.close()

	if roomCode, playerID := sess.detach(); playerID != "" && that.release(playerID, sess) {
		that.scheduleLeave(roomCode, playerID)
	}

	log.Info("WebSocket connection closed", "session", sess.id)
}

// readPump - processes messages from the client until the connection drops.
func (that *Server) readPump(ctx context.Context, sess *session) {
	sess.conn.SetReadLimit(that.options.MaxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(that.options.PongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(that.options.PongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.logger.Warn("connection closed unexpectedly", "error", err)
			}

			return
		}

		if err = that.dispatch(ctx, sess, data); err != nil {
			sess.logger.Debug("request failed", "error", err)
			sess.fail(err)
		}
	}
}

func (that *Server) dispatch(ctx context.Context, sess *session, data []byte) error {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return fmt.Errorf("%w: malformed message", errBadRequest)
	}

	handle, ok := that.handlers[message.Action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", errBadRequest, message.Action)
	}

	var req Request
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &req); err != nil {
			return fmt.Errorf("%w: malformed payload", errBadRequest)
		}
	}

	return handle(ctx, sess, req)
}

// claim - makes sess the connection of the player and cancels a pending leave.
func (that *Server) claim(playerID string, sess *session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.seats[playerID] = sess

	if timer, ok := that.pending[playerID]; ok {
		timer.Stop()
		delete(that.pending, playerID)
	}
}

// release - reports whether sess was still the connection of the player.
func (that *Server) release(playerID string, sess *session) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.seats[playerID] != sess {
		return false
	}

	delete(that.seats, playerID)

	return true
}

// scheduleLeave - leaves the room for a dropped player unless it reconnects in time.
func (that *Server) scheduleLeave(roomCode, playerID string) {
	leave := func() {
		that.mu.Lock()
		delete(that.pending, playerID)
		that.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if _, err := that.adapter.Deliver(ctx, roomCode, playerID, entity.Leave()); err != nil {
			that.logger.Debug("failed to leave room after disconnect", "code", roomCode, "player", playerID, "error", err)
		}
	}

	if that.options.DisconnectGrace <= 0 {
		leave()
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if timer, ok := that.pending[playerID]; ok {
		timer.Stop()
	}
	that.pending[playerID] = time.AfterFunc(that.options.DisconnectGrace, leave)
}

func (that *Server) online(fallback bool) bool {
	if reporter, ok := that.adapter.(onlineReporter); ok {
		return reporter.Online()
	}

	return fallback
}
