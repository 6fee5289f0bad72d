package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type roomDirectory interface {
	CreateRoom(ctx context.Context, hostID string) (string, error)
	ListOpenRooms(ctx context.Context) []string
	JoinRoom(ctx context.Context, roomID, playerID string) (bool, error)
}

type Server struct {
	logger *slog.Logger
	rooms  *roomHandlers

	mu  sync.Mutex
	srv *http.Server
}

func New(logger *slog.Logger, directory roomDirectory) *Server {
	logger = logger.With("component", "rest")

	return &Server{
		logger: logger,
		rooms:  newRoomHandlers(logger, directory),
	}
}

// Router wires the HTTP API.
func (that *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ping", that.ping)
	router.Route("/rooms", func(r chi.Router) {
		r.Get("/", that.rooms.list)
		r.Post("/", that.rooms.create)
		r.Post("/{id}/join", that.rooms.join)
	})

	return router
}

// Start - listens on port until Shutdown is called.
func (that *Server) Start(port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
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
