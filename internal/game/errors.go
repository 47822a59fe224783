package game

import "errors"

var (
	// ErrNotStarted rejects moves sent before admission completes.
	ErrNotStarted = errors.New("game has not started")
	// ErrNotYourTurn rejects moves from anyone but the turn holder.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrOutOfBounds rejects coordinates off the board.
	ErrOutOfBounds = errors.New("cell position out of bounds")
)
