package entity

import "fmt"

const (
	StatusOngoing = "ongoing"
	StatusWon     = "won"
	StatusDraw    = "draw"

	PlayerX = "X"
	PlayerO = "O"

	EmptyCell = ""

	BoardSize = 9
)

// Board is the 3x3 grid stored row-major: row = index/3, col = index%3.
// It is a value type, so every move produces a new snapshot.
type Board [BoardSize]string

func NewBoard() Board {
	return Board{EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell, EmptyCell}
}

// With returns a copy of the board with mark placed at index.
func (that Board) With(index int, mark string) Board {
	that[index] = mark
	return that
}

// EmptyCells returns the indexes of empty cells in ascending order.
func (that Board) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

// Outcome classifies a match: ongoing, won by Winner, or drawn.
type Outcome struct {
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

func InProgress() Outcome {
	return Outcome{Status: StatusOngoing}
}

func Won(mark string) Outcome {
	return Outcome{Status: StatusWon, Winner: mark}
}

func Draw() Outcome {
	return Outcome{Status: StatusDraw}
}

func (that Outcome) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that Outcome) IsTerminal() bool {
	return that.Status == StatusWon || that.Status == StatusDraw
}

// MatchState is the full state of one match as seen by its controller.
type MatchState struct {
	Board   Board   `json:"board"`
	Turn    string  `json:"turn"`
	Outcome Outcome `json:"outcome"`
}

func NewMatchState() MatchState {
	return MatchState{
		Board:   NewBoard(),
		Turn:    PlayerX,
		Outcome: InProgress(),
	}
}

// Describe renders the state as a one-line status.
func (that MatchState) Describe() string {
	switch that.Outcome.Status {
	case StatusWon:
		return fmt.Sprintf("Winner: %s", that.Outcome.Winner)
	case StatusDraw:
		return "Draw"
	default:
		return fmt.Sprintf("Turn: %s", that.Turn)
	}
}

// Opponent returns the other mark.
func Opponent(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
