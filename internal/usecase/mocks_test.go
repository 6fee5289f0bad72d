package usecase

import (
	"context"
	"testing"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/stretchr/testify/mock"
)

type mockRoomRepo struct {
	mock.Mock
}

func newMockRoomRepo(t *testing.T) *mockRoomRepo {
	m := &mockRoomRepo{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (that *mockRoomRepo) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	return that.Called(ctx, room).Error(0)
}

func (that *mockRoomRepo) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	args := that.Called(ctx, id)
	room, _ := args.Get(0).(*entity.Room)

	return room, args.Error(1)
}

func (that *mockRoomRepo) GetMany(ctx context.Context, ids []string) ([]repository.RoomResult, error) {
	args := that.Called(ctx, ids)
	results, _ := args.Get(0).([]repository.RoomResult)

	return results, args.Error(1)
}

func (that *mockRoomRepo) ListIDs(ctx context.Context) ([]string, error) {
	args := that.Called(ctx)
	ids, _ := args.Get(0).([]string)

	return ids, args.Error(1)
}

func (that *mockRoomRepo) RemoveID(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

func (that *mockRoomRepo) ClaimSecondSeat(ctx context.Context, id, playerID string) (bool, error) {
	args := that.Called(ctx, id, playerID)

	return args.Bool(0), args.Error(1)
}

func (that *mockRoomRepo) Watch(ctx context.Context, id string) (<-chan repository.RoomEvent, error) {
	args := that.Called(ctx, id)
	events, _ := args.Get(0).(chan repository.RoomEvent)
	if events == nil {
		return nil, args.Error(1)
	}

	return events, args.Error(1)
}

type mockPlayerRepo struct {
	mock.Mock
}

func newMockPlayerRepo(t *testing.T) *mockPlayerRepo {
	m := &mockPlayerRepo{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (that *mockPlayerRepo) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	return that.Called(ctx, player).Error(0)
}

func (that *mockPlayerRepo) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)

	return player, args.Error(1)
}
