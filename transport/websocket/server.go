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

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/match"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
)

type playerManager interface {
	GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error)
}

type roomDirectory interface {
	match.RoomDirectory

	CreateRoom(ctx context.Context, hostID string) (string, error)
	ListOpenRooms(ctx context.Context) []string
	JoinRoom(ctx context.Context, roomID, playerID string) (bool, error)
}

type handlerFunc func(ctx context.Context, sess *session, msg *Message) error

type Server struct {
	logger    *slog.Logger
	players   playerManager
	directory roomDirectory
	upgrader  websocket.Upgrader

	handlers map[string]handlerFunc

	mu  sync.Mutex
	srv *http.Server
}

func New(logger *slog.Logger, players playerManager, directory roomDirectory) *Server {
	server := &Server{
		logger:    logger.With("component", "websocket"),
		players:   players,
		directory: directory,
		upgrader:  websocket.Upgrader{CheckOrigin: allowAnyOrigin},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionLocalNew] = server.handleLocalNew
	server.handlers[actionLocalTurn] = server.handleLocalTurn
	server.handlers[actionLocalReset] = server.handleLocalReset
	server.handlers[actionRoomCreate] = server.handleRoomCreate
	server.handlers[actionRoomList] = server.handleRoomList
	server.handlers[actionRoomJoin] = server.handleRoomJoin
	server.handlers[actionRoomTurn] = server.handleRoomTurn

	return server
}

// allowAnyOrigin accepts browser clients served from any host.
func allowAnyOrigin(*http.Request) bool {
	return true
}

// Handler serves /ws. Connections are closed when ctx ends.
func (that *Server) Handler(ctx context.Context) http.Handler {
	router := chi.NewRouter()
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWebSocket(ctx, w, r)
	})

	return router
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	that.mu.Lock()
	that.srv = srv
	that.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	that.mu.Lock()
	srv := that.srv
	that.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func (that *Server) serveWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWebSocket")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := newSession(that.logger, conn)
	defer sess.close()

	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	log.Info("WebSocket connection established", "remote", r.RemoteAddr)

	that.handleMessages(connCtx, sess)

	log.Info("WebSocket connection closed", "remote", r.RemoteAddr)
}

// handleMessages - processes messages from the client until the connection drops.
func (that *Server) handleMessages(ctx context.Context, sess *session) {
	log := that.logger.With("method", "handleMessages")

	sess.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("connection dropped", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			sess.sendError(message.Action, "unknown action")
			continue
		}

		if err = handler(ctx, sess, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}
