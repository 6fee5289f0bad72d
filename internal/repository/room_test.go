package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = time.Minute

func TestRoomRepository_CreateOrUpdate(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, testTTL)

	// Given: a freshly hosted room
	room := entity.NewRoom("room_1", "host")

	// When: CreateOrUpdate is called
	err := roomRepo.CreateOrUpdate(ctx, room)

	// Then: the room is stored, indexed and expires
	require.NoError(t, err)

	stored, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room, stored)

	ids, err := roomRepo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{room.ID}, ids)

	ttl, err := st.Storage.TTL(ctx, roomKey(room.ID)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestRoomRepository_CreateOrUpdate_Version(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, testTTL)

	// Given: a room written once
	room := entity.NewRoom("room_1", "host")
	require.NoError(t, roomRepo.CreateOrUpdate(ctx, room))
	assert.Equal(t, int64(1), room.Version)

	// When: it is written again from a copy carrying a stale version
	stale := *room
	stale.Version = 0
	stale.Turn = entity.PlayerO
	require.NoError(t, roomRepo.CreateOrUpdate(ctx, &stale))

	// Then: the store ignores the caller's version and keeps counting
	assert.Equal(t, int64(2), stale.Version)

	stored, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, &stale, stored)

	ttl, err := st.Storage.TTL(ctx, versionKey(room.ID)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestRoomRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		room, err := roomRepo.GetByID(ctx, "room_missing")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Nil(t, room)
	})

	t.Run("GetByID_Corrupted", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		// Given: a value that is not a room document
		require.NoError(t, st.Storage.Set(ctx, roomKey("room_bad"), "not json", 0).Err())

		// When/Then: decoding fails with an error
		_, err := roomRepo.GetByID(ctx, "room_bad")
		require.Error(t, err)
	})
}

func TestRoomRepository_GetMany(t *testing.T) {
	t.Run("Results follow the requested order", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		// Given: two stored rooms, one corrupted value and one missing id
		first := entity.NewRoom("room_1", "a")
		second := entity.NewRoom("room_2", "b")
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, first))
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, second))
		require.NoError(t, st.Storage.Set(ctx, roomKey("room_bad"), "not json", 0).Err())

		// When: all of them are fetched at once
		results, err := roomRepo.GetMany(ctx, []string{"room_2", "room_missing", "room_bad", "room_1"})

		// Then: every id has its own result
		require.NoError(t, err)
		require.Len(t, results, 4)

		assert.Equal(t, RoomResult{ID: "room_2", Room: second}, results[0])

		assert.Equal(t, "room_missing", results[1].ID)
		require.ErrorIs(t, results[1].Err, apperror.ErrRoomNotFound)

		assert.Equal(t, "room_bad", results[2].ID)
		require.Error(t, results[2].Err)
		assert.NotErrorIs(t, results[2].Err, apperror.ErrRoomNotFound)

		assert.Equal(t, RoomResult{ID: "room_1", Room: first}, results[3])
	})

	t.Run("No ids", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		results, err := roomRepo.GetMany(ctx, nil)

		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestRoomRepository_RemoveID(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, testTTL)

	require.NoError(t, roomRepo.CreateOrUpdate(ctx, entity.NewRoom("room_1", "a")))
	require.NoError(t, roomRepo.CreateOrUpdate(ctx, entity.NewRoom("room_2", "b")))

	// When: one id is pruned from the index
	require.NoError(t, roomRepo.RemoveID(ctx, "room_1"))

	// Then: only the other remains listed
	ids, err := roomRepo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"room_2"}, ids)
}

func TestRoomRepository_ClaimSecondSeat(t *testing.T) {
	t.Run("Open room is claimed", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, entity.NewRoom("room_1", "host")))

		claimed, err := roomRepo.ClaimSecondSeat(ctx, "room_1", "guest")

		require.NoError(t, err)
		assert.True(t, claimed)

		room, err := roomRepo.GetByID(ctx, "room_1")
		require.NoError(t, err)
		assert.Equal(t, "guest", room.Player2)
		assert.Equal(t, int64(2), room.Version)
	})

	t.Run("Claim is published with its version", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, entity.NewRoom("room_1", "host")))

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		events, err := roomRepo.Watch(watchCtx, "room_1")
		require.NoError(t, err)

		claimed, err := roomRepo.ClaimSecondSeat(ctx, "room_1", "guest")
		require.NoError(t, err)
		require.True(t, claimed)

		select {
		case event := <-events:
			require.NoError(t, event.Err)
			assert.Equal(t, "guest", event.Room.Player2)
			assert.Equal(t, int64(2), event.Room.Version)
		case <-time.After(5 * time.Second):
			t.Fatal("no event received")
		}
	})

	t.Run("Occupied room is refused", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)
		room := entity.NewRoom("room_1", "host")
		room.Player2 = "guest"
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, room))

		claimed, err := roomRepo.ClaimSecondSeat(ctx, "room_1", "latecomer")

		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("Participants rejoin", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, entity.NewRoom("room_1", "host")))

		claimed, err := roomRepo.ClaimSecondSeat(ctx, "room_1", "host")

		require.NoError(t, err)
		assert.True(t, claimed)

		room, err := roomRepo.GetByID(ctx, "room_1")
		require.NoError(t, err)
		assert.True(t, room.IsOpen())
	})

	t.Run("Missing room", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		claimed, err := roomRepo.ClaimSecondSeat(ctx, "room_missing", "guest")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.False(t, claimed)
	})

	t.Run("Concurrent joiners get exactly one seat", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, entity.NewRoom("room_1", "host")))

		// When: two players race for the second seat
		var wg sync.WaitGroup
		results := make([]bool, 2)
		for i, playerID := range []string{"guest_a", "guest_b"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimed, err := roomRepo.ClaimSecondSeat(ctx, "room_1", playerID)
				assert.NoError(t, err)
				results[i] = claimed
			}()
		}
		wg.Wait()

		// Then: at most one wins, and the stored seat agrees with the winner
		room, err := roomRepo.GetByID(ctx, "room_1")
		require.NoError(t, err)
		assert.False(t, results[0] && results[1])
		switch {
		case results[0]:
			assert.Equal(t, "guest_a", room.Player2)
		case results[1]:
			assert.Equal(t, "guest_b", room.Player2)
		}
	})
}

func TestRoomRepository_Watch(t *testing.T) {
	t.Run("Writes arrive in order", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)
		room := entity.NewRoom("room_1", "host")
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, room))

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		events, err := roomRepo.Watch(watchCtx, room.ID)
		require.NoError(t, err)

		// When: the room is written twice
		first := *room
		first.Board = first.Board.With(4, entity.PlayerX)
		first.Turn = entity.PlayerO
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, &first))

		second := first
		second.Board = second.Board.With(0, entity.PlayerO)
		second.Turn = entity.PlayerX
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, &second))

		// Then: both snapshots arrive in write order with growing versions
		assert.Equal(t, []int64{2, 3}, []int64{first.Version, second.Version})
		for _, expected := range []entity.Room{first, second} {
			select {
			case event := <-events:
				require.NoError(t, event.Err)
				assert.Equal(t, expected, *event.Room)
			case <-time.After(5 * time.Second):
				t.Fatal("no event received")
			}
		}
	})

	t.Run("Undecodable payload is reported", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		events, err := roomRepo.Watch(watchCtx, "room_1")
		require.NoError(t, err)

		require.NoError(t, st.Storage.Publish(ctx, roomChannel("room_1"), "garbage").Err())

		select {
		case event := <-events:
			require.Error(t, event.Err)
			assert.Nil(t, event.Room)
		case <-time.After(5 * time.Second):
			t.Fatal("no event received")
		}
	})

	t.Run("Channel closes with the context", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, testTTL)

		watchCtx, cancel := context.WithCancel(ctx)
		events, err := roomRepo.Watch(watchCtx, "room_1")
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(5 * time.Second):
			t.Fatal("channel was not closed")
		}
	})
}
