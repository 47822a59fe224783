package game

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// SweeperEngine runs the multiplayer grid-reveal game. The board lives in
// the store; a per-lobby revealed set tracks progress. Hitting a mine
// eliminates the mover, except on the very first reveal of the match,
// where the mine quietly moves somewhere safe.
type SweeperEngine struct {
	store       store.Store
	turnSeconds int
}

func NewSweeperEngine(st store.Store, turnSeconds int) *SweeperEngine {
	return &SweeperEngine{store: st, turnSeconds: turnSeconds}
}

func (e *SweeperEngine) Kind() models.GameKind { return models.GameSweeper }
func (e *SweeperEngine) TurnSeconds() int      { return e.turnSeconds }

func (e *SweeperEngine) GameOverFrame() models.ServerMessage {
	return models.NewMultiplayerGameOver()
}

// GenerateBoard lays out an n-by-n board with round(n*n*risk) mines and
// adjacency counts filled in.
func GenerateBoard(size int, risk float64) *models.Board {
	total := size * size
	mineCount := int(math.Round(float64(total) * risk))

	perm := rand.Perm(total)
	mines := make(map[int]bool, mineCount)
	for _, idx := range perm[:mineCount] {
		mines[idx] = true
	}

	b := &models.Board{Size: size, Cells: make([]models.Cell, total)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			idx := y*size + x
			b.Cells[idx] = models.Cell{X: x, Y: y, IsMine: mines[idx]}
		}
	}
	recountAdjacency(b)
	return b
}

func recountAdjacency(b *models.Board) {
	for y := 0; y < b.Size; y++ {
		for x := 0; x < b.Size; x++ {
			cell := b.At(x, y)
			if cell.IsMine {
				continue
			}
			adjacent := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if b.InBounds(nx, ny) && b.At(nx, ny).IsMine {
						adjacent++
					}
				}
			}
			cell.Adjacent = adjacent
		}
	}
}

// ShiftMine moves the mine at (x, y) to a random safe cell and recomputes
// every adjacency count. No-op when the cell holds no mine.
func ShiftMine(b *models.Board, x, y int) error {
	if !b.InBounds(x, y) {
		return ErrOutOfBounds
	}
	hit := b.At(x, y)
	if !hit.IsMine {
		return nil
	}

	var safe []int
	for i := range b.Cells {
		if !b.Cells[i].IsMine {
			safe = append(safe, i)
		}
	}
	if len(safe) == 0 {
		return fmt.Errorf("no safe cell to move the mine to")
	}

	hit.IsMine = false
	b.Cells[safe[rand.Intn(len(safe))]].IsMine = true
	recountAdjacency(b)
	return nil
}

// MaskBoard projects the board for clients: revealed cells show mine/gem/
// adjacency, the rest stay unknown.
func MaskBoard(b *models.Board, revealed []models.CellPosition) []models.MaskedCell {
	revealedSet := make(map[models.CellPosition]bool, len(revealed))
	for _, pos := range revealed {
		revealedSet[pos] = true
	}

	masked := make([]models.MaskedCell, len(b.Cells))
	for i := range b.Cells {
		cell := &b.Cells[i]
		var state *models.CellState
		if revealedSet[models.CellPosition{X: cell.X, Y: cell.Y}] {
			state = models.RevealedState(cell.IsMine, cell.Adjacent, false)
		}
		masked[i] = models.MaskedCell{X: cell.X, Y: cell.Y, State: state}
	}
	return masked
}

// UnmaskBoard exposes every cell, used when a match ends.
func UnmaskBoard(b *models.Board) []models.MaskedCell {
	masked := make([]models.MaskedCell, len(b.Cells))
	for i := range b.Cells {
		cell := &b.Cells[i]
		masked[i] = models.MaskedCell{
			X: cell.X, Y: cell.Y,
			State: models.RevealedState(cell.IsMine, cell.Adjacent, false),
		}
	}
	return masked
}

func (e *SweeperEngine) Begin(ctx context.Context, s *Session) ([]models.ServerMessage, error) {
	size := s.Info.BoardSize
	if size == 0 {
		size = 8
	}
	risk := s.Info.MineRisk
	if risk == 0 {
		risk = 0.15
	}

	board := GenerateBoard(size, risk)
	if err := e.store.SaveBoard(ctx, s.LobbyID, board); err != nil {
		return nil, err
	}

	remaining := uint64(e.turnSeconds)
	return []models.ServerMessage{
		models.NewGameBoard(MaskBoard(board, nil), models.BoardPlaying, &remaining, board.MineCount(), size),
	}, nil
}

func (e *SweeperEngine) Apply(ctx context.Context, s *Session, mover *models.Player, m *models.ClientMessage) (*MoveOutcome, error) {
	x, y := m.X, m.Y

	// Turn gate under the match lock; board work happens against the store
	// afterwards, which is safe because only the turn holder gets past.
	s.mu.Lock()
	if !s.Started || s.Finished {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if s.CurrentTurn != mover.ID {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	moverName := mover.DisplayName()
	s.mu.Unlock()

	board, err := e.store.Board(ctx, s.LobbyID)
	if err != nil {
		return nil, err
	}
	if !board.InBounds(x, y) {
		return &MoveOutcome{Reject: models.NewError("Invalid cell position")}, nil
	}

	revealed, err := e.store.RevealedCells(ctx, s.LobbyID)
	if err != nil {
		return nil, err
	}
	for _, pos := range revealed {
		if pos.X == x && pos.Y == y {
			return &MoveOutcome{Reject: models.NewError("Cell already revealed")}, nil
		}
	}

	// First-move safety: the opening reveal never hits a mine.
	if len(revealed) == 0 && board.At(x, y).IsMine {
		if err := ShiftMine(board, x, y); err != nil {
			return nil, err
		}
		if err := e.store.SaveBoard(ctx, s.LobbyID, board); err != nil {
			return nil, err
		}
		log.Printf("[GAME] mine shifted on first move at (%d, %d) in lobby %s", x, y, s.LobbyID)
	}

	if err := e.store.AddRevealed(ctx, s.LobbyID, x, y); err != nil {
		return nil, err
	}

	cell := board.At(x, y)
	frames := []models.ServerMessage{
		models.NewCellRevealed(x, y, *models.RevealedState(cell.IsMine, cell.Adjacent, false), moverName),
	}

	if cell.IsMine {
		return &MoveOutcome{
			Broadcasts:     frames,
			EliminateMover: true,
			Reason:         models.EliminatedHitMine,
			MinePosition:   &models.CellPosition{X: x, Y: y},
		}, nil
	}

	safeCells := len(board.Cells) - board.MineCount()
	if len(revealed)+1 >= safeCells {
		return &MoveOutcome{Broadcasts: frames, Completed: true}, nil
	}

	s.mu.Lock()
	pos := indexOf(s.Active, mover.ID)
	if pos < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("mover %s not in active list", mover.ID)
	}
	nextID := s.Active[(pos+1)%len(s.Active)]
	s.CurrentTurn = nextID
	nextPlayer, _ := s.player(nextID)
	next := *nextPlayer
	s.mu.Unlock()

	if err := e.store.SetCurrentTurn(ctx, s.LobbyID, nextID); err != nil {
		log.Printf("[STORE] set current turn failed for lobby %s: %v", s.LobbyID, err)
	}

	frames = append(frames, models.NewTurn(next, e.turnSeconds))
	return &MoveOutcome{Broadcasts: frames, NextTurn: nextID}, nil
}
