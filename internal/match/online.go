package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

// RoomDirectory is the part of the shared room store an online match needs.
type RoomDirectory interface {
	Subscribe(ctx context.Context, roomID string) (<-chan *entity.Room, error)
	SubmitMove(ctx context.Context, roomID string, index int, playerID string) error
}

// OnlineController mirrors a shared room into a local MatchState.
// The room snapshot is authoritative; local state is only ever overwritten by it.
type OnlineController struct {
	logger    *slog.Logger
	directory RoomDirectory

	roomID   string
	playerID string

	mu     sync.RWMutex
	state  entity.MatchState
	symbol string
	synced bool
}

func NewOnlineController(logger *slog.Logger, directory RoomDirectory, roomID, playerID string) *OnlineController {
	return &OnlineController{
		logger:    logger.With("component", "online_match", "roomID", roomID, "playerID", playerID),
		directory: directory,
		roomID:    roomID,
		playerID:  playerID,
		state:     entity.NewMatchState(),
	}
}

func (that *OnlineController) RoomID() string {
	return that.roomID
}

// Run subscribes to the room and applies snapshots one at a time, in delivery order.
// onUpdate, if set, is called after each snapshot is applied. Run returns when the
// subscription ends or ctx is canceled.
func (that *OnlineController) Run(ctx context.Context, onUpdate func(entity.MatchState)) error {
	log := that.logger.With("method", "Run")

	updates, err := that.directory.Subscribe(ctx, that.roomID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to room %s: %w", that.roomID, err)
	}

	log.Info("subscribed to room")

	for {
		select {
		case <-ctx.Done():
			log.Info("subscription canceled")
			return nil
		case room, ok := <-updates:
			if !ok {
				log.Info("subscription closed")
				return nil
			}

			if room == nil {
				continue
			}

			state := that.apply(room)
			if onUpdate != nil {
				onUpdate(state)
			}
		}
	}
}

func (that *OnlineController) apply(room *entity.Room) entity.MatchState {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.state = room.MatchState()
	that.symbol = room.SymbolFor(that.playerID)
	that.synced = true

	return that.state
}

// RequestMove publishes a move intent if this player owns the turn and the cell is free.
// It never waits for the resulting snapshot; that arrives through Run.
func (that *OnlineController) RequestMove(ctx context.Context, index int) bool {
	log := that.logger.With("method", "RequestMove", "cell", index)

	that.mu.RLock()
	state, symbol, synced := that.state, that.symbol, that.synced
	that.mu.RUnlock()

	switch {
	case !synced:
		log.Info("move ignored: room state not received yet")
		return false
	case !state.Outcome.IsOngoing():
		log.Info("move ignored: match is over", "outcome", state.Outcome.Status)
		return false
	case symbol != state.Turn:
		log.Info("move ignored: not your turn", "symbol", symbol, "turn", state.Turn)
		return false
	case !tictactoe.IsLegalMove(state.Board, index):
		log.Info("move ignored: cell is not available")
		return false
	}

	if err := that.directory.SubmitMove(ctx, that.roomID, index, that.playerID); err != nil {
		log.Error("failed to submit move", "error", err)
		return false
	}

	return true
}

func (that *OnlineController) State() entity.MatchState {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.state
}

// Symbol returns the mark assigned by the latest snapshot, or EmptyCell before the first one.
func (that *OnlineController) Symbol() string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.symbol
}
