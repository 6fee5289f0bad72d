package tictactoe

import (
	"math"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	// NoMove is returned by FindBestMove when the board has no empty cell.
	NoMove = -1

	// ComputerMark is the maximizing side of the search.
	ComputerMark = entity.PlayerO
	// HumanMark is the minimizing side of the search.
	HumanMark = entity.PlayerX

	winScore = 10
)

// Evaluate scores the board by exhaustive minimax from O's point of view.
// Wins for O score 10-depth, wins for X score depth-10, draws score 0.
func Evaluate(board entity.Board, depth int, maximizing bool) int {
	scratch := board
	return minimax(&scratch, depth, maximizing)
}

// FindBestMove returns the cell where O scores highest. Ties keep the lowest index.
func FindBestMove(board entity.Board) int {
	scratch := board
	bestScore := math.MinInt
	bestMove := NoMove

	for i := range scratch {
		if scratch[i] != entity.EmptyCell {
			continue
		}

		scratch[i] = ComputerMark
		score := minimax(&scratch, 0, false)
		scratch[i] = entity.EmptyCell

		if score > bestScore {
			bestScore = score
			bestMove = i
		}
	}

	return bestMove
}

// minimax mutates board while exploring and restores every cell before returning.
func minimax(board *entity.Board, depth int, maximizing bool) int {
	switch DetectWinner(*board) {
	case ComputerMark:
		return winScore - depth
	case HumanMark:
		return depth - winScore
	}

	if IsFull(*board) {
		return 0
	}

	mark, best := HumanMark, math.MaxInt
	if maximizing {
		mark, best = ComputerMark, math.MinInt
	}

	for i := range board {
		if board[i] != entity.EmptyCell {
			continue
		}

		board[i] = mark
		score := minimax(board, depth+1, !maximizing)
		board[i] = entity.EmptyCell

		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}

	return best
}
