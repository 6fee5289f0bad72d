package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	actionConnect    = "connect"
	actionLocalNew   = "local:new"
	actionLocalTurn  = "local:turn"
	actionLocalReset = "local:reset"
	actionRoomCreate = "room:create"
	actionRoomList   = "room:list"
	actionRoomJoin   = "room:join"
	actionRoomTurn   = "room:turn"
	actionRoomState  = "room:state"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is what clients send; each action reads only the fields it needs.
type Payload struct {
	Player *entity.Player `json:"player,omitempty"`
	Mode   string         `json:"mode,omitempty"`
	Cell   *int           `json:"cell,omitempty"`
	Mark   string         `json:"mark,omitempty"`
	RoomID string         `json:"room_id,omitempty"`
}

type ResponsePayload struct {
	Player   *entity.Player `json:"player,omitempty"`
	State    *StateResponse `json:"state,omitempty"`
	RoomID   string         `json:"room_id,omitempty"`
	Rooms    []string       `json:"rooms,omitempty"`
	Joined   *bool          `json:"joined,omitempty"`
	Accepted *bool          `json:"accepted,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type StateResponse struct {
	Board   entity.Board   `json:"board"`
	Turn    string         `json:"turn"`
	Outcome entity.Outcome `json:"outcome"`
	Status  string         `json:"status"`
	Mode    string         `json:"mode,omitempty"`
	RoomID  string         `json:"room_id,omitempty"`
	Symbol  string         `json:"symbol,omitempty"`
}

func newStateResponse(state entity.MatchState) *StateResponse {
	return &StateResponse{
		Board:   state.Board,
		Turn:    state.Turn,
		Outcome: state.Outcome,
		Status:  state.Describe(),
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
