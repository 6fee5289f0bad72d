package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/match"
)

// session is the per-connection state. Handler calls run on the read loop only;
// the online controller pushes snapshots from its own goroutine through send.
type session struct {
	logger *slog.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex

	player *entity.Player

	local      *match.LocalController
	localState entity.MatchState

	online     *match.OnlineController
	stopOnline context.CancelFunc
}

func newSession(logger *slog.Logger, conn *websocket.Conn) *session {
	return &session{
		logger: logger.With("component", "session"),
		conn:   conn,
	}
}

func (that *session) send(action string, payload ResponsePayload) {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := that.conn.WriteJSON(Message{Action: action, Payload: mustMarshal(payload)}); err != nil {
		that.logger.Warn("failed to send message", "action", action, "error", err)
	}
}

func (that *session) sendError(action, reason string) {
	that.send(action, ResponsePayload{Error: reason})
}

func (that *session) playerID() string {
	if that.player == nil {
		return ""
	}

	return that.player.ID
}

// leaveRoom stops mirroring the current room, if any.
func (that *session) leaveRoom() {
	if that.stopOnline != nil {
		that.stopOnline()
	}

	that.online = nil
	that.stopOnline = nil
}

func (that *session) close() {
	that.leaveRoom()
}
