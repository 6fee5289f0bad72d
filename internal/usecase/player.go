package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
)

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

// PlayerManager registers session players and remembers which room they sit in.
type PlayerManager struct {
	logger     *slog.Logger
	playerRepo playerRepo
}

func NewPlayerManager(logger *slog.Logger, playerRepo playerRepo) *PlayerManager {
	return &PlayerManager{
		logger:     logger.With("component", "player_manager"),
		playerRepo: playerRepo,
	}
}

// GetOrCreatePlayer returns the stored player, registering a new one when id is empty or unknown.
func (that *PlayerManager) GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error) {
	if id == "" {
		id = pkg.GeneratePlayerID()
	} else {
		player, err := that.playerRepo.GetByID(ctx, id)
		if err == nil {
			return player, nil
		}

		if !errors.Is(err, apperror.ErrPlayerNotFound) {
			return nil, fmt.Errorf("failed to get player by id: %w", err)
		}
	}

	player := &entity.Player{ID: id}
	if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	that.logger.Info("player registered", "playerID", id)

	return player, nil
}
