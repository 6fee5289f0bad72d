package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// WinCombos are the 8 winning lines in evaluation order: rows, columns, diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// DetectWinner returns the mark filling the first complete line, or EmptyCell.
func DetectWinner(board entity.Board) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	return entity.EmptyCell
}

func IsFull(board entity.Board) bool {
	for _, cell := range board {
		if cell == entity.EmptyCell {
			return false
		}
	}

	return true
}

func IsLegalMove(board entity.Board, index int) bool {
	return index >= 0 && index < len(board) && board[index] == entity.EmptyCell
}

// ValidateMove - same check as IsLegalMove, but tells why the move is rejected.
func ValidateMove(board entity.Board, index int) error {
	if index < 0 || index >= len(board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if board[index] != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, index)
	}

	return nil
}

// ResolveOutcome classifies the board. A completed line wins even on a full board.
func ResolveOutcome(board entity.Board) entity.Outcome {
	if winner := DetectWinner(board); winner != entity.EmptyCell {
		return entity.Won(winner)
	}

	if IsFull(board) {
		return entity.Draw()
	}

	return entity.InProgress()
}
