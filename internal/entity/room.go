package entity

// Room is the shared record of a networked match. The store owns it;
// controllers only read snapshots and send move intents.
type Room struct {
	ID      string  `json:"id"`
	Board   Board   `json:"board"`
	Turn    string  `json:"turn"`
	Player1 string  `json:"player1"`
	Player2 string  `json:"player2,omitempty"`
	Outcome Outcome `json:"outcome"`
	// Version is assigned by the store on every write and only grows.
	Version int64 `json:"version"`
}

func NewRoom(id, hostID string) *Room {
	return &Room{
		ID:      id,
		Board:   NewBoard(),
		Turn:    PlayerX,
		Player1: hostID,
		Outcome: InProgress(),
	}
}

// IsOpen reports whether the second seat is still free.
func (that *Room) IsOpen() bool {
	return that.Player2 == ""
}

func (that *Room) HasPlayer(playerID string) bool {
	return playerID != "" && (that.Player1 == playerID || that.Player2 == playerID)
}

// SymbolFor returns X for the host and O for anyone else.
func (that *Room) SymbolFor(playerID string) string {
	if playerID == that.Player1 {
		return PlayerX
	}
	return PlayerO
}

// SeatOf returns the mark of a seated player, or EmptyCell when playerID holds no seat.
func (that *Room) SeatOf(playerID string) string {
	switch {
	case playerID == "":
		return EmptyCell
	case playerID == that.Player1:
		return PlayerX
	case playerID == that.Player2:
		return PlayerO
	default:
		return EmptyCell
	}
}

// IsNewerThan reports whether the room was written after other. Any room is newer than nil.
func (that *Room) IsNewerThan(other *Room) bool {
	if other == nil {
		return true
	}

	return that.Version > other.Version
}

func (that *Room) MatchState() MatchState {
	return MatchState{
		Board:   that.Board,
		Turn:    that.Turn,
		Outcome: that.Outcome,
	}
}
