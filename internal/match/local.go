package match

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type Mode string

const (
	// SinglePlayer - human plays X against the minimax opponent.
	SinglePlayer Mode = "single"
	// TwoPlayer - two humans share one device.
	TwoPlayer Mode = "local"
)

var ErrUnknownMode = errors.New("unknown game mode")

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case SinglePlayer, TwoPlayer:
		return Mode(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

// LocalController sequences turns for matches played on one device.
// It holds no match state: every call takes a state and returns the next one.
type LocalController struct {
	logger *slog.Logger
	mode   Mode
}

func NewLocalController(logger *slog.Logger, mode Mode) *LocalController {
	return &LocalController{
		logger: logger.With("component", "local_match", "mode", string(mode)),
		mode:   mode,
	}
}

func (that *LocalController) Mode() Mode {
	return that.mode
}

// Reset returns a fresh match: empty board, X to move.
func (that *LocalController) Reset() entity.MatchState {
	return entity.NewMatchState()
}

// ApplyMove places acting at index and advances the match.
// Rejected moves return state unchanged.
func (that *LocalController) ApplyMove(state entity.MatchState, index int, acting string) entity.MatchState {
	log := that.logger.With("method", "ApplyMove", "cell", index, "mark", acting)

	if reason := that.rejectReason(state, index, acting); reason != "" {
		log.Debug("move rejected", "reason", reason)
		return state
	}

	state = place(state, index, acting)

	if that.mode != SinglePlayer || !state.Outcome.IsOngoing() {
		return state
	}

	reply := tictactoe.FindBestMove(state.Board)
	if reply == tictactoe.NoMove {
		return state
	}

	log.Debug("computer replied", "reply", reply)

	return place(state, reply, tictactoe.ComputerMark)
}

func (that *LocalController) rejectReason(state entity.MatchState, index int, acting string) string {
	switch {
	case !state.Outcome.IsOngoing():
		return "match is over"
	case that.mode == SinglePlayer && acting != tictactoe.HumanMark:
		return "computer mark is not playable"
	case acting != state.Turn:
		return "not this mark's turn"
	case !tictactoe.IsLegalMove(state.Board, index):
		return "illegal cell"
	default:
		return ""
	}
}

// place applies a validated move and recomputes outcome and turn.
func place(state entity.MatchState, index int, mark string) entity.MatchState {
	state.Board = state.Board.With(index, mark)
	state.Outcome = tictactoe.ResolveOutcome(state.Board)

	if state.Outcome.IsOngoing() {
		state.Turn = entity.Opponent(mark)
	}

	return state
}
