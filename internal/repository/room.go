package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	roomKeyPrefix  = "room:"
	roomsIndexKey  = "rooms"
	updatesSuffix  = ":updates"
	versionSuffix  = ":version"
	maxClaimTrials = 3
)

// saveRoom stamps the next version into the document, stores it, indexes it and
// publishes it in one step, so versions follow commit order even without locking.
//
// KEYS: room, version counter, index. ARGV: room JSON, ttl in ms (0 keeps it), room id, channel.
var saveRoom = redis.NewScript(`
local version = redis.call('INCR', KEYS[2])
local room = cjson.decode(ARGV[1])
room['version'] = version
local doc = cjson.encode(room)
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('SET', KEYS[1], doc, 'PX', ttl)
  redis.call('PEXPIRE', KEYS[2], ttl)
else
  redis.call('SET', KEYS[1], doc)
end
redis.call('SADD', KEYS[3], ARGV[3])
redis.call('PUBLISH', ARGV[4], doc)
return version
`)

// RoomResult is one entry of a batch lookup. Err is apperror.ErrRoomNotFound for expired rooms.
type RoomResult struct {
	ID   string
	Room *entity.Room
	Err  error
}

// RoomEvent is one notification from a room channel. Err is set when the payload could not be decoded.
type RoomEvent struct {
	Room *entity.Room
	Err  error
}

type RoomRepository interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	GetMany(ctx context.Context, ids []string) ([]RoomResult, error)
	ListIDs(ctx context.Context) ([]string, error)
	RemoveID(ctx context.Context, id string) error
	ClaimSecondSeat(ctx context.Context, id, playerID string) (bool, error)
	Watch(ctx context.Context, id string) (<-chan RoomEvent, error)
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomRepository stores rooms as JSON documents that expire ttl after their last write.
// A zero ttl keeps rooms forever.
func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

func roomKey(id string) string {
	return roomKeyPrefix + id
}

func roomChannel(id string) string {
	return roomKeyPrefix + id + updatesSuffix
}

func versionKey(id string) string {
	return roomKeyPrefix + id + versionSuffix
}

func (that *dbRoom) saveArgs(room *entity.Room) ([]string, []any, error) {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return nil, nil, fmt.Errorf("could not marshal room: %w", err)
	}

	keys := []string{roomKey(room.ID), versionKey(room.ID), roomsIndexKey}
	args := []any{string(roomJSON), that.ttl.Milliseconds(), room.ID, roomChannel(room.ID)}

	return keys, args, nil
}

// CreateOrUpdate writes the room, indexes it and notifies subscribers atomically.
// room.Version is set to the version the store assigned.
func (that *dbRoom) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	keys, args, err := that.saveArgs(room)
	if err != nil {
		return err
	}

	version, err := saveRoom.Run(ctx, that.client, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	room.Version = version

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	room, err := decodeRoom(response)
	if err != nil {
		return nil, err
	}

	return room, nil
}

// GetMany fetches rooms in one round trip; results follow the order of ids.
func (that *dbRoom) GetMany(ctx context.Context, ids []string) ([]RoomResult, error) {
	if len(ids) == 0 {
		return []RoomResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}

	results := make([]RoomResult, len(ids))
	for i, value := range values {
		results[i].ID = ids[i]

		data, ok := value.(string)
		if !ok {
			results[i].Err = apperror.ErrRoomNotFound
			continue
		}

		results[i].Room, results[i].Err = decodeRoom([]byte(data))
	}

	return results, nil
}

func (that *dbRoom) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := that.client.SMembers(ctx, roomsIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	return ids, nil
}

func (that *dbRoom) RemoveID(ctx context.Context, id string) error {
	if err := that.client.SRem(ctx, roomsIndexKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove room %s from index: %w", id, err)
	}

	return nil
}

// ClaimSecondSeat sets player2 only if it is still empty when the write commits.
// A participant claiming again gets true without a write.
func (that *dbRoom) ClaimSecondSeat(ctx context.Context, id, playerID string) (bool, error) {
	key := roomKey(id)
	claimed := false

	claim := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		room, err := decodeRoom(response)
		if err != nil {
			return err
		}

		if room.HasPlayer(playerID) {
			claimed = true
			return nil
		}

		if !room.IsOpen() {
			return nil
		}

		room.Player2 = playerID
		keys, args, err := that.saveArgs(room)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			saveRoom.Eval(ctx, pipe, keys, args...)
			return nil
		})
		if err != nil {
			return err
		}

		claimed = true

		return nil
	}

	for range maxClaimTrials {
		err := that.client.Watch(ctx, claim, key)
		if errors.Is(err, redis.TxFailedErr) {
			// the room changed between read and write; read it again
			continue
		}

		if err != nil {
			return false, fmt.Errorf("failed to claim seat in room %s: %w", id, err)
		}

		return claimed, nil
	}

	return false, nil
}

// Watch streams every notification published for the room until ctx ends.
// The subscription is confirmed before Watch returns, so no later write is missed.
func (that *dbRoom) Watch(ctx context.Context, id string) (<-chan RoomEvent, error) {
	pubsub := that.client.Subscribe(ctx, roomChannel(id))

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", id, err)
	}

	events := make(chan RoomEvent)

	go func() {
		defer close(events)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				room, err := decodeRoom([]byte(msg.Payload))
				select {
				case events <- RoomEvent{Room: room, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func decodeRoom(data []byte) (*entity.Room, error) {
	var room entity.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}
