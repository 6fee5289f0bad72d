package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type roomRepo interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	GetMany(ctx context.Context, ids []string) ([]repository.RoomResult, error)
	ListIDs(ctx context.Context) ([]string, error)
	RemoveID(ctx context.Context, id string) error
	ClaimSecondSeat(ctx context.Context, id, playerID string) (bool, error)
	Watch(ctx context.Context, id string) (<-chan repository.RoomEvent, error)
}

// RoomDirectory owns every networked room: it creates and lists them, seats players,
// validates move intents and distributes the resulting snapshots.
type RoomDirectory struct {
	logger  *slog.Logger
	rooms   roomRepo
	players playerRepo

	subscriptionBuffer int
	now                func() time.Time
}

func NewRoomDirectory(logger *slog.Logger, rooms roomRepo, players playerRepo, subscriptionBuffer int) *RoomDirectory {
	return &RoomDirectory{
		logger:  logger.With("component", "room_directory"),
		rooms:   rooms,
		players: players,

		subscriptionBuffer: max(subscriptionBuffer, 0),
		now:                time.Now,
	}
}

// CreateRoom allocates an empty room with hostID in the first seat and X to move.
func (that *RoomDirectory) CreateRoom(ctx context.Context, hostID string) (string, error) {
	if hostID == "" {
		return "", apperror.ErrMissingPlayerID
	}

	room := entity.NewRoom(pkg.GenerateRoomID(that.now()), hostID)
	if err := that.rooms.CreateOrUpdate(ctx, room); err != nil {
		return "", fmt.Errorf("failed to create room: %w", err)
	}

	that.rememberRoom(ctx, hostID, room.ID)

	that.logger.Info("room created", "roomID", room.ID, "playerID", hostID)

	return room.ID, nil
}

// ListOpenRooms returns the ids of rooms still waiting for a second player, sorted.
// Lookup failures yield an empty or partial listing, never an error.
func (that *RoomDirectory) ListOpenRooms(ctx context.Context) []string {
	log := that.logger.With("method", "ListOpenRooms")

	ids, err := that.rooms.ListIDs(ctx)
	if err != nil {
		log.Error("failed to list rooms", "error", err)
		return []string{}
	}

	results, err := that.rooms.GetMany(ctx, ids)
	if err != nil {
		log.Error("failed to get rooms", "error", err)
		return []string{}
	}

	open := make([]string, 0, len(results))
	for _, result := range results {
		if errors.Is(result.Err, apperror.ErrRoomNotFound) {
			// expired; drop it from the index
			if err = that.rooms.RemoveID(ctx, result.ID); err != nil {
				log.Warn("failed to prune expired room", "roomID", result.ID, "error", err)
			}
			continue
		}

		if result.Err != nil {
			log.Error("failed to get room", "roomID", result.ID, "error", result.Err)
			continue
		}

		if result.Room.IsOpen() {
			open = append(open, result.ID)
		}
	}

	slices.Sort(open)

	return open
}

// JoinRoom claims the second seat. It reports false when another player already holds it.
// Players already seated in the room rejoin successfully.
func (that *RoomDirectory) JoinRoom(ctx context.Context, roomID, playerID string) (bool, error) {
	if playerID == "" {
		return false, apperror.ErrMissingPlayerID
	}

	joined, err := that.rooms.ClaimSecondSeat(ctx, roomID, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to join room: %w", err)
	}

	log := that.logger.With("method", "JoinRoom", "roomID", roomID, "playerID", playerID)
	if !joined {
		log.Info("room is already full")
		return false, nil
	}

	that.rememberRoom(ctx, playerID, roomID)

	log.Info("player joined room")

	return true, nil
}

// Subscribe delivers the current room first and then every later write, in write order.
// Notifications no newer than the last delivered room are skipped, so a write that lands
// between opening the watch and reading the room never rewinds a subscriber.
// The channel is closed when ctx ends. Notifications that cannot be decoded are logged and dropped.
func (that *RoomDirectory) Subscribe(ctx context.Context, roomID string) (<-chan *entity.Room, error) {
	log := that.logger.With("method", "Subscribe", "roomID", roomID)

	watchCtx, cancel := context.WithCancel(ctx)

	// watch before reading so no write between the two is lost
	events, err := that.rooms.Watch(watchCtx, roomID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch room: %w", err)
	}

	initial, err := that.rooms.GetByID(watchCtx, roomID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	updates := make(chan *entity.Room, that.subscriptionBuffer)

	go func() {
		defer cancel()
		defer close(updates)

		if !send(watchCtx, updates, initial) {
			return
		}

		last := initial

		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}

				if event.Err != nil {
					log.Warn("dropping room notification", "error", event.Err)
					continue
				}

				if !event.Room.IsNewerThan(last) {
					log.Debug("skipping stale room notification",
						"version", event.Room.Version, "lastVersion", last.Version)
					continue
				}

				if !send(watchCtx, updates, event.Room) {
					return
				}

				last = event.Room
			}
		}
	}()

	return updates, nil
}

func send(ctx context.Context, updates chan<- *entity.Room, room *entity.Room) bool {
	select {
	case updates <- room:
		return true
	case <-ctx.Done():
		return false
	}
}

// SubmitMove applies a move intent for the player's seat and persists the result.
// Concurrent submissions are not serialized; the last write wins.
func (that *RoomDirectory) SubmitMove(ctx context.Context, roomID string, index int, playerID string) error {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	mark := room.SeatOf(playerID)

	switch {
	case mark == entity.EmptyCell:
		return fmt.Errorf("%w: %s", apperror.ErrNotInRoom, playerID)
	case room.IsOpen():
		return apperror.ErrGameNotStarted
	case !room.Outcome.IsOngoing():
		return apperror.ErrGameFinished
	case mark != room.Turn:
		return apperror.ErrNotYourTurn
	}

	if err = tictactoe.ValidateMove(room.Board, index); err != nil {
		return err
	}

	room.Board = room.Board.With(index, mark)
	room.Outcome = tictactoe.ResolveOutcome(room.Board)
	if room.Outcome.IsOngoing() {
		room.Turn = entity.Opponent(mark)
	}

	if err = that.rooms.CreateOrUpdate(ctx, room); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	that.logger.Info("move applied",
		"roomID", roomID, "playerID", playerID, "cell", index, "outcome", room.Outcome.Status)

	return nil
}

// rememberRoom records the player's current room so a reconnecting session can resume it.
func (that *RoomDirectory) rememberRoom(ctx context.Context, playerID, roomID string) {
	log := that.logger.With("method", "rememberRoom", "playerID", playerID, "roomID", roomID)

	player, err := that.players.GetByID(ctx, playerID)
	if errors.Is(err, apperror.ErrPlayerNotFound) {
		player = &entity.Player{ID: playerID}
	} else if err != nil {
		log.Error("failed to get player", "error", err)
		return
	}

	player.RoomID = roomID
	if err = that.players.CreateOrUpdate(ctx, player); err != nil {
		log.Error("failed to update player", "error", err)
	}
}
