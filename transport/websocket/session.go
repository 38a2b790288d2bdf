package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/memorymatch-backend/internal/entity"
)

// session - one websocket connection. A connection plays in at most one room at a time.
type session struct {
	id     string
	logger *slog.Logger
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}

	closeOnce sync.Once

	mu          sync.Mutex
	roomCode    string
	playerID    string
	unsubscribe func()
	lastVersion int64
}

func newSession(id string, conn *websocket.Conn, buffer int, logger *slog.Logger) *session {
	return &session{
		id:     id,
		logger: logger.With("session", id),
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// seat - the room and player this connection plays as.
func (that *session) seat() (string, string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roomCode, that.playerID
}

// attach - binds the connection to a seat.
func (that *session) attach(roomCode, playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.roomCode != roomCode {
		that.lastVersion = 0
	}
	that.roomCode, that.playerID = roomCode, playerID
}

// subscribed - keeps the room subscription so that detach can cancel it.
func (that *session) subscribed(unsubscribe func()) {
	that.mu.Lock()
	previous := that.unsubscribe
	that.unsubscribe = unsubscribe
	that.mu.Unlock()

	if previous != nil {
		previous()
	}
}

// detach - forgets the seat and returns what it was.
func (that *session) detach() (string, string) {
	that.mu.Lock()
	roomCode, playerID, unsubscribe := that.roomCode, that.playerID, that.unsubscribe
	that.roomCode, that.playerID, that.unsubscribe = "", "", nil
	that.lastVersion = 0
	that.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	return roomCode, playerID
}

// push - sends a room state unless the connection has already seen this version.
// A reply to the connection's own request goes out even without a newer version and carries its seat token.
func (that *session) push(update entity.RoomUpdate, online, reply bool) {
	if update.Room == nil {
		return
	}

	that.mu.Lock()
	if update.Room.Version <= that.lastVersion && !(reply && len(update.Events) == 0) {
		that.mu.Unlock()
		return
	}
	if update.Room.Version > that.lastVersion {
		that.lastVersion = update.Room.Version
	}
	you := that.playerID
	that.mu.Unlock()

	var token string
	if player := update.Room.Player(you); reply && player != nil {
		token = player.Token
	}

	that.write(actionRoomState, newRoomState(update, you, token, online))
}

func (that *session) fail(err error) {
	that.write(actionError, newErrorPayload(err))
}

// write - queues a message without blocking. A client that does not keep up is disconnected.
func (that *session) write(action string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		that.logger.Error("failed to marshal payload", "action", action, "error", err)
		return
	}

	data, err := json.Marshal(Message{Action: action, Payload: body})
	if err != nil {
		that.logger.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	select {
	case <-that.done:
	case that.send <- data:
	default:
		that.logger.Warn("send buffer is full, closing connection")
		that.close()
	}
}

func (that *session) close() {
	that.closeOnce.Do(func() {
		close(that.done)
		_ = that.conn.Close()
	})
}

func (that *session) writePump(options Options) {
	ticker := time.NewTicker(options.PingPeriod)
	defer func() {
		ticker.Stop()
		that.close()
	}()

	for {
		select {
		case <-that.done:
			return
		case data := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(options.WriteWait))
			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				that.logger.Debug("failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(options.WriteWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
