package models

import (
	"encoding/json"
	"fmt"
)

// Cell is one square of a grid-reveal board with full knowledge. Revealed
// and Flagged are tracked per cell in the single-player game; the
// multiplayer game keeps its revealed set in the store instead.
type Cell struct {
	X        int  `json:"x"`
	Y        int  `json:"y"`
	IsMine   bool `json:"isMine"`
	Adjacent int  `json:"adjacent"`
	Revealed bool `json:"revealed"`
	Flagged  bool `json:"flagged"`
}

// CellState is what a viewer is allowed to know about a cell.
type CellState struct {
	Kind  string `json:"kind"` // hidden | flagged | mine | gem | adjacent
	Count int    `json:"count,omitempty"`
}

const (
	CellHidden   = "hidden"
	CellFlagged  = "flagged"
	CellMine     = "mine"
	CellGem      = "gem"
	CellAdjacent = "adjacent"
)

func FlaggedCell() *CellState       { return &CellState{Kind: CellFlagged} }
func MineCell() *CellState          { return &CellState{Kind: CellMine} }
func GemCell() *CellState           { return &CellState{Kind: CellGem} }
func AdjacentCell(n int) *CellState { return &CellState{Kind: CellAdjacent, Count: n} }

// RevealedState picks the wire state for a revealed cell.
func RevealedState(isMine bool, adjacent int, blind bool) *CellState {
	switch {
	case isMine:
		return MineCell()
	case blind || adjacent == 0:
		return GemCell()
	default:
		return AdjacentCell(adjacent)
	}
}

// MaskedCell is the projection of a cell sent to clients. State is nil for
// a cell the viewer knows nothing about.
type MaskedCell struct {
	X     int        `json:"x"`
	Y     int        `json:"y"`
	State *CellState `json:"state"`
}

// Board is a square grid of cells stored row-major.
type Board struct {
	Size  int    `json:"size"`
	Cells []Cell `json:"cells"`
}

func (b *Board) At(x, y int) *Cell {
	return &b.Cells[y*b.Size+x]
}

func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.Size && y >= 0 && y < b.Size
}

// MineCount counts the mines currently on the board.
func (b *Board) MineCount() int {
	n := 0
	for i := range b.Cells {
		if b.Cells[i].IsMine {
			n++
		}
	}
	return n
}

// EncodeBoard serializes a board for the store.
func EncodeBoard(b *Board) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("encode board: %w", err)
	}
	return string(data), nil
}

// DecodeBoard is the inverse of EncodeBoard.
func DecodeBoard(s string) (*Board, error) {
	var b Board
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return &b, nil
}
