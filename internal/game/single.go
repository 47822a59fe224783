package game

import (
	"context"
	"log"
	"sync"
	"time"

	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/config"
	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// SingleGame is the durable record of one solo grid-reveal game. Exactly
// one game per user exists at a time; a new board can only be created once
// the previous game is won or lost.
type SingleGame struct {
	ID            uuid.UUID          `json:"id"`
	UserID        uuid.UUID          `json:"userId"`
	Username      string             `json:"username"`
	Size          int                `json:"size"`
	Risk          float64            `json:"risk"`
	Cells         []models.Cell      `json:"cells"`
	State         string             `json:"gameState"`
	CreatedAt     time.Time          `json:"createdAt"`
	FirstMove     bool               `json:"firstMove"`
	Blind         bool               `json:"blind"`
	RevealedCount int                `json:"userRevealedCount"`
	Amount        float64            `json:"amount"`
	TxID          string             `json:"txId"`
	Claim         *models.ClaimState `json:"claimState"`
}

func NewSingleGame(userID uuid.UUID, username string, size int, risk float64, blind bool, amount float64, txID string) *SingleGame {
	board := GenerateBoard(size, risk)
	return &SingleGame{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  username,
		Size:      size,
		Risk:      risk,
		Cells:     board.Cells,
		State:     models.BoardWaiting,
		CreatedAt: time.Now().UTC(),
		FirstMove: true,
		Blind:     blind,
		Amount:    amount,
		TxID:      txID,
		Claim:     models.NotClaimed(),
	}
}

func EncodeSingleGame(g *SingleGame) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode single game: %w", err)
	}
	return string(data), nil
}

func DecodeSingleGame(s string) (*SingleGame, error) {
	var g SingleGame
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return nil, fmt.Errorf("decode single game: %w", err)
	}
	return &g, nil
}

// board wraps the cells so board helpers (bounds, mine shifting) apply.
// The returned board shares the game's cell slice.
func (g *SingleGame) board() *models.Board {
	return &models.Board{Size: g.Size, Cells: g.Cells}
}

func (g *SingleGame) mineCount() int {
	return g.board().MineCount()
}

// CanCreateNew reports whether this game no longer blocks a new board.
func (g *SingleGame) CanCreateNew() bool {
	return g.State == models.BoardWon || g.State == models.BoardLost
}

// CashoutAmount is the claimable value of the game so far, nil when there
// is nothing to claim.
func (g *SingleGame) CashoutAmount() *float64 {
	if g.State != models.BoardPlaying && g.State != models.BoardWon {
		return nil
	}
	if g.RevealedCount == 0 || g.Claim.IsClaimed() {
		return nil
	}
	amount := g.Amount * CashoutMultiplier(g.Size, g.Risk, g.RevealedCount)
	return &amount
}

// MaskedCells projects the board for the player: flags, then revealed
// state, everything else unknown. Blind games show gems instead of
// adjacency counts.
func (g *SingleGame) MaskedCells() []models.MaskedCell {
	masked := make([]models.MaskedCell, len(g.Cells))
	for i := range g.Cells {
		cell := &g.Cells[i]
		var state *models.CellState
		switch {
		case cell.Flagged:
			state = models.FlaggedCell()
		case cell.Revealed:
			state = models.RevealedState(cell.IsMine, cell.Adjacent, g.Blind)
		}
		masked[i] = models.MaskedCell{X: cell.X, Y: cell.Y, State: state}
	}
	return masked
}

// UnmaskedCells exposes the whole board, used once the game ends.
func (g *SingleGame) UnmaskedCells() []models.MaskedCell {
	masked := make([]models.MaskedCell, len(g.Cells))
	for i := range g.Cells {
		cell := &g.Cells[i]
		masked[i] = models.MaskedCell{
			X: cell.X, Y: cell.Y,
			State: models.RevealedState(cell.IsMine, cell.Adjacent, g.Blind),
		}
	}
	return masked
}

// revealFrom reveals (x, y) and floods outward through zero-adjacency
// regions. Flood-revealed cells do not count as player reveals.
func (g *SingleGame) revealFrom(x, y int) {
	b := g.board()
	cell := b.At(x, y)
	cell.Revealed = true
	if cell.IsMine || cell.Adjacent != 0 {
		return
	}
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if b.InBounds(nx, ny) {
				n := b.At(nx, ny)
				if !n.Revealed && !n.IsMine {
					g.revealFrom(nx, ny)
				}
			}
		}
	}
}

// finish reveals and unflags every cell and moves the game to state.
func (g *SingleGame) finish(state string) {
	g.State = state
	for i := range g.Cells {
		g.Cells[i].Revealed = true
		g.Cells[i].Flagged = false
	}
}

func (g *SingleGame) allSafeRevealed() bool {
	for i := range g.Cells {
		if !g.Cells[i].IsMine && !g.Cells[i].Revealed {
			return false
		}
	}
	return true
}

// SingleManager runs solo grid-reveal games. Solo sockets register in the
// hub under the player's own id as the lobby key, so every frame goes out
// through the same messenger as match traffic.
type SingleManager struct {
	cfg   *config.Config
	store store.Store
	msg   Messenger

	mu     sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
	clocks map[uuid.UUID]uuid.UUID
}

func NewSingleManager(cfg *config.Config, st store.Store, msg Messenger) *SingleManager {
	return &SingleManager{
		cfg:    cfg,
		store:  st,
		msg:    msg,
		locks:  make(map[uuid.UUID]*sync.Mutex),
		clocks: make(map[uuid.UUID]uuid.UUID),
	}
}

// userLock serializes all work for one user's game.
func (m *SingleManager) userLock(userID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *SingleManager) send(ctx context.Context, userID uuid.UUID, frame models.ServerMessage) {
	m.msg.SendToPlayer(ctx, userID, userID, frame)
}

func (m *SingleManager) sendError(ctx context.Context, userID uuid.UUID, msg string) {
	m.send(ctx, userID, models.NewError(msg))
}

func (m *SingleManager) loadGame(ctx context.Context, userID uuid.UUID) (*SingleGame, error) {
	payload, err := m.store.SingleGame(ctx, userID)
	if err != nil {
		return nil, err
	}
	return DecodeSingleGame(payload)
}

func (m *SingleManager) saveGame(ctx context.Context, g *SingleGame) error {
	payload, err := EncodeSingleGame(g)
	if err != nil {
		return err
	}
	return m.store.SetSingleGame(ctx, g.UserID, payload, 0)
}

// HandleConnect replays the user's game on (re)connect: the final board
// for a finished game, the masked board with remaining time for an ongoing
// one, or a NoBoard prompt.
func (m *SingleManager) HandleConnect(ctx context.Context, userID uuid.UUID) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	g, err := m.loadGame(ctx, userID)
	if err != nil {
		m.send(ctx, userID, models.NewNoBoard("No existing game found. Create a new board to start playing."))
		return
	}

	if g.State == models.BoardWon || g.State == models.BoardLost {
		m.send(ctx, userID, models.NewBoardGameOver(g.State == models.BoardWon, g.UnmaskedCells(), g.mineCount(), g.Size))
		m.send(ctx, userID, models.NewClaimInfo(g.Claim, g.CashoutAmount(), nil, nil, nil, nil))
		return
	}

	var remaining *uint64
	if g.State == models.BoardPlaying {
		if secs, ok, err := m.store.SingleCountdown(ctx, userID); err == nil && ok {
			remaining = &secs
		}
	}
	m.send(ctx, userID, models.NewGameBoard(g.MaskedCells(), g.State, remaining, g.mineCount(), g.Size))
	m.send(ctx, userID, m.claimInfo(g))
}

// claimInfo builds the running claim frame; progress fields appear only
// once the player has revealed something.
func (m *SingleManager) claimInfo(g *SingleGame) models.ClaimInfoMessage {
	if g.RevealedCount == 0 {
		return models.NewClaimInfo(g.Claim, g.CashoutAmount(), nil, nil, nil, nil)
	}
	mult := CashoutMultiplier(g.Size, g.Risk, g.RevealedCount)
	revealed := g.RevealedCount
	size := g.Size
	risk := g.Risk
	var multPtr *float64
	if g.State == models.BoardPlaying {
		multPtr = &mult
	}
	return models.NewClaimInfo(g.Claim, g.CashoutAmount(), multPtr, &revealed, &size, &risk)
}

// HandleDisconnect releases nothing: the game and its clock keep running,
// durable frames queue for the reconnect.
func (m *SingleManager) HandleDisconnect(_ context.Context, _ uuid.UUID) {}

// HandleMessage dispatches one parsed solo-game frame.
func (m *SingleManager) HandleMessage(ctx context.Context, userID uuid.UUID, username string, msg *models.ClientMessage) {
	switch msg.Type {
	case models.ClientPing:
		now := uint64(time.Now().UnixMilli())
		var pong uint64
		if now > msg.Ts {
			pong = now - msg.Ts
		}
		m.send(ctx, userID, models.NewPong(msg.Ts, pong))
	case models.ClientCreateBoard:
		m.createBoard(ctx, userID, username, msg)
	case models.ClientCellReveal:
		m.cellReveal(ctx, userID, msg.X, msg.Y)
	case models.ClientCellFlag:
		m.cellFlag(ctx, userID, msg.X, msg.Y)
	case models.ClientMultiplierTarget:
		m.multiplierTarget(ctx, userID, msg)
	case models.ClientCashout:
		m.cashout(ctx, userID, msg.TxID)
	default:
		log.Printf("[WS] unknown solo message type %q from %s", msg.Type, userID)
	}
}

func (m *SingleManager) createBoard(ctx context.Context, userID uuid.UUID, username string, msg *models.ClientMessage) {
	size := msg.Size
	if size == 0 {
		size = m.cfg.DefaultBoardSize
	}
	risk := msg.Risk
	if risk == 0 {
		risk = m.cfg.DefaultMineRisk
	}

	if size < 3 || size > 10 {
		m.sendError(ctx, userID, "Grid size must be between 3 and 10")
		m.send(ctx, userID, models.NewNoBoard("Error creating board."))
		return
	}
	if risk < 0.1 || risk > 0.9 {
		m.sendError(ctx, userID, "Risk must be between 0.1 and 0.9")
		m.send(ctx, userID, models.NewNoBoard("Error creating board."))
		return
	}

	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if existing, err := m.loadGame(ctx, userID); err == nil && !existing.CanCreateNew() {
		m.sendError(ctx, userID, "Cannot create a new game while current game is in progress")
		return
	}

	g := NewSingleGame(userID, username, size, risk, msg.Blind, msg.Amount, msg.TxID)
	if err := m.saveGame(ctx, g); err != nil {
		log.Printf("[STORE] save single game for %s failed: %v", userID, err)
		m.sendError(ctx, userID, "Failed to create game")
		return
	}

	log.Printf("[GAME] solo board created for %s: %dx%d risk %.2f blind=%t", userID, size, size, risk, g.Blind)
	m.send(ctx, userID, models.NewBoardCreated(g.MaskedCells(), g.State, g.mineCount(), g.Size))
}

func (m *SingleManager) cellReveal(ctx context.Context, userID uuid.UUID, x, y int) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	g, err := m.loadGame(ctx, userID)
	if err != nil {
		m.sendError(ctx, userID, "No active game found")
		return
	}
	if g.State != models.BoardWaiting && g.State != models.BoardPlaying {
		m.sendError(ctx, userID, "Cannot reveal cells when game is not active")
		return
	}
	b := g.board()
	if !b.InBounds(x, y) {
		m.sendError(ctx, userID, "Invalid cell coordinates")
		return
	}
	cell := b.At(x, y)
	if cell.Revealed || cell.Flagged {
		m.sendError(ctx, userID, "Cell is already revealed or flagged")
		return
	}

	// Opening reveal never hits a mine; the game also goes live here.
	if g.FirstMove {
		if cell.IsMine {
			if err := ShiftMine(b, x, y); err != nil {
				log.Printf("[GAME] mine shift failed for %s: %v", userID, err)
				m.sendError(ctx, userID, "Failed to shift mine")
				return
			}
			log.Printf("[GAME] mine shifted on first solo move for %s", userID)
		}
		g.FirstMove = false
		g.State = models.BoardPlaying
	}

	if cell.IsMine {
		g.finish(models.BoardLost)
		m.stopClock(ctx, userID)
		if err := m.saveGame(ctx, g); err != nil {
			log.Printf("[STORE] save single game for %s failed: %v", userID, err)
		}
		log.Printf("[GAME] player %s hit a mine at (%d, %d)", userID, x, y)
		m.send(ctx, userID, models.NewBoardGameOver(false, g.UnmaskedCells(), g.mineCount(), g.Size))
		m.send(ctx, userID, models.NewClaimInfo(g.Claim, nil, nil, nil, nil, nil))
		return
	}

	g.RevealedCount++
	g.revealFrom(x, y)

	if g.allSafeRevealed() {
		g.finish(models.BoardWon)
		m.stopClock(ctx, userID)
		if err := m.saveGame(ctx, g); err != nil {
			log.Printf("[STORE] save single game for %s failed: %v", userID, err)
		}
		log.Printf("[GAME] player %s cleared the board", userID)
		m.send(ctx, userID, models.NewBoardGameOver(true, g.UnmaskedCells(), g.mineCount(), g.Size))
		m.send(ctx, userID, m.claimInfo(g))
		return
	}

	// Every safe reveal resets the game clock.
	m.startClock(ctx, userID)

	if err := m.saveGame(ctx, g); err != nil {
		log.Printf("[STORE] save single game for %s failed: %v", userID, err)
		m.sendError(ctx, userID, "Failed to save game state")
		return
	}

	m.send(ctx, userID, models.NewCountdown(uint64(m.cfg.SingleGameClockSecs)))
	m.send(ctx, userID, m.claimInfo(g))
}

func (m *SingleManager) cellFlag(ctx context.Context, userID uuid.UUID, x, y int) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	g, err := m.loadGame(ctx, userID)
	if err != nil {
		m.sendError(ctx, userID, "No active game found")
		return
	}
	if g.State != models.BoardWaiting && g.State != models.BoardPlaying {
		m.sendError(ctx, userID, "Cannot flag cells when game is not active")
		return
	}
	b := g.board()
	if !b.InBounds(x, y) {
		m.sendError(ctx, userID, "Invalid cell coordinates")
		return
	}
	cell := b.At(x, y)
	if cell.Revealed {
		m.sendError(ctx, userID, "Cannot flag revealed cell")
		return
	}

	cell.Flagged = !cell.Flagged

	if err := m.saveGame(ctx, g); err != nil {
		log.Printf("[STORE] save single game for %s failed: %v", userID, err)
		m.sendError(ctx, userID, "Failed to save game state")
		return
	}

	// Flagging never resets the clock; echo the remaining time.
	if g.State == models.BoardPlaying {
		if secs, ok, err := m.store.SingleCountdown(ctx, userID); err == nil && ok {
			m.send(ctx, userID, models.NewCountdown(secs))
		}
	}
}

func (m *SingleManager) multiplierTarget(ctx context.Context, userID uuid.UUID, msg *models.ClientMessage) {
	size := msg.Size
	risk := msg.Risk
	if size < 3 || size > 10 {
		m.sendError(ctx, userID, "Grid size must be between 3 and 10")
		return
	}
	if risk < 0.1 || risk > 0.9 {
		m.sendError(ctx, userID, "Risk must be between 0.1 and 0.9")
		return
	}

	max := CashoutMultiplier(size, risk, size*size)
	m.send(ctx, userID, models.NewMultiplierTarget(max, size, risk))
}

func (m *SingleManager) cashout(ctx context.Context, userID uuid.UUID, txID string) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	g, err := m.loadGame(ctx, userID)
	if err != nil {
		m.sendError(ctx, userID, "No active game found")
		return
	}
	if g.State != models.BoardPlaying {
		m.sendError(ctx, userID, "Cannot cashout when game is not in progress")
		return
	}
	if g.RevealedCount == 0 {
		m.sendError(ctx, userID, "Cannot cashout without revealing any cells")
		return
	}

	mult := CashoutMultiplier(g.Size, g.Risk, g.RevealedCount)
	amount := g.Amount * mult

	g.State = models.BoardWon
	g.Claim = models.Claimed(txID)
	m.stopClock(ctx, userID)

	if err := m.saveGame(ctx, g); err != nil {
		log.Printf("[STORE] save single game for %s failed: %v", userID, err)
		m.sendError(ctx, userID, "Failed to process cashout")
		return
	}

	log.Printf("[GAME] player %s cashed out %.6f (%.2fx)", userID, amount, mult)

	revealed := g.RevealedCount
	size := g.Size
	risk := g.Risk
	m.send(ctx, userID, models.NewClaimInfo(g.Claim, &amount, &mult, &revealed, &size, &risk))
}

// startClock (re)starts the user's game clock. Only the newest clock
// session survives; older goroutines notice and exit on their next tick.
func (m *SingleManager) startClock(ctx context.Context, userID uuid.UUID) {
	session := uuid.New()
	m.mu.Lock()
	m.clocks[userID] = session
	m.mu.Unlock()

	if err := m.store.SetSingleCountdown(ctx, userID, uint64(m.cfg.SingleGameClockSecs)); err != nil {
		log.Printf("[STORE] set single countdown for %s failed: %v", userID, err)
	}

	go m.runClock(context.WithoutCancel(ctx), userID, session)
}

func (m *SingleManager) clockValid(userID, session uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clocks[userID] == session
}

func (m *SingleManager) stopClock(ctx context.Context, userID uuid.UUID) {
	m.mu.Lock()
	delete(m.clocks, userID)
	m.mu.Unlock()
	if err := m.store.ClearSingleCountdown(ctx, userID); err != nil {
		log.Printf("[STORE] clear single countdown for %s failed: %v", userID, err)
	}
}

func (m *SingleManager) runClock(ctx context.Context, userID, session uuid.UUID) {
	for remaining := uint64(m.cfg.SingleGameClockSecs); ; remaining-- {
		if !m.clockValid(userID, session) {
			return
		}
		if err := m.store.SetSingleCountdown(ctx, userID, remaining); err != nil {
			log.Printf("[STORE] set single countdown for %s failed: %v", userID, err)
		}
		if remaining == 0 {
			m.expireClock(ctx, userID, session)
			return
		}
		m.send(ctx, userID, models.NewCountdown(remaining))
		time.Sleep(time.Second)
	}
}

// expireClock ends a still-running game as a loss once the clock hits
// zero.
func (m *SingleManager) expireClock(ctx context.Context, userID, session uuid.UUID) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if !m.clockValid(userID, session) {
		return
	}
	m.stopClock(ctx, userID)

	g, err := m.loadGame(ctx, userID)
	if err != nil {
		log.Printf("[STORE] load single game for %s failed at expiry: %v", userID, err)
		return
	}
	if g.State != models.BoardPlaying {
		return
	}

	log.Printf("[TIMER] solo game clock expired for %s", userID)
	g.finish(models.BoardLost)
	if err := m.saveGame(ctx, g); err != nil {
		log.Printf("[STORE] save single game for %s failed: %v", userID, err)
	}

	m.send(ctx, userID, models.NewTimeUp(g.UnmaskedCells(), g.mineCount(), g.Size))
	m.send(ctx, userID, models.NewClaimInfo(g.Claim, nil, nil, nil, nil, nil))
}
