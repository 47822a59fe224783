package game

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

func soloFixture(t *testing.T) (*SingleManager, *captureMessenger, *store.MemoryStore, uuid.UUID) {
	t.Helper()
	st := store.NewMemoryStore()
	msgr := newCaptureMessenger()
	return NewSingleManager(testConfig(), st, msgr), msgr, st, uuid.New()
}

// plantSoloGame saves a hand-built 3x3 game with a single mine at (2,2).
func plantSoloGame(t *testing.T, m *SingleManager, userID uuid.UUID, state string, firstMove bool) *SingleGame {
	t.Helper()
	b := buildTestBoard(3, [2]int{2, 2})
	g := &SingleGame{
		ID:        uuid.New(),
		UserID:    userID,
		Username:  "solo",
		Size:      3,
		Risk:      0.2,
		Cells:     b.Cells,
		State:     state,
		CreatedAt: time.Now().UTC(),
		FirstMove: firstMove,
		Amount:    10,
		Claim:     models.NotClaimed(),
	}
	if err := m.saveGame(context.Background(), g); err != nil {
		t.Fatalf("plant solo game: %v", err)
	}
	return g
}

func (m *SingleManager) mustLoad(t *testing.T, userID uuid.UUID) *SingleGame {
	t.Helper()
	g, err := m.loadGame(context.Background(), userID)
	if err != nil {
		t.Fatalf("load solo game: %v", err)
	}
	return g
}

func soloReveal(x, y int) *models.ClientMessage {
	return &models.ClientMessage{Type: models.ClientCellReveal, X: x, Y: y}
}

func soloFlag(x, y int) *models.ClientMessage {
	return &models.ClientMessage{Type: models.ClientCellFlag, X: x, Y: y}
}

func lastError(frames []models.ServerMessage) (models.ErrorMessage, bool) {
	for i := len(frames) - 1; i >= 0; i-- {
		if e, ok := frames[i].(models.ErrorMessage); ok {
			return e, true
		}
	}
	return models.ErrorMessage{}, false
}

func TestSoloCreateBoardValidation(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientCreateBoard, Size: 2, Risk: 0.2})
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Grid size must be between 3 and 10" {
		t.Errorf("size rejection %#v", e)
	}
	if _, ok := hasFrame[models.NoBoardMessage](msgr.sentTo(uid)); !ok {
		t.Errorf("no noBoard frame after a failed create")
	}

	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientCreateBoard, Size: 5, Risk: 0.95})
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Risk must be between 0.1 and 0.9" {
		t.Errorf("risk rejection %#v", e)
	}
}

func TestSoloCreateBoardAndReplay(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientCreateBoard, Size: 5, Risk: 0.2, Amount: 25})

	bc, ok := hasFrame[models.BoardCreatedMessage](msgr.sentTo(uid))
	if !ok {
		t.Fatalf("no boardCreated frame")
	}
	if len(bc.Cells) != 25 || bc.BoardSize != 5 || bc.GameState != models.BoardWaiting {
		t.Errorf("boardCreated %#v", bc)
	}
	if want := int(math.Round(25 * 0.2)); bc.Mines != want {
		t.Errorf("mines %d, want %d", bc.Mines, want)
	}
	for _, cell := range bc.Cells {
		if cell.State != nil {
			t.Fatalf("fresh board leaked cell state at (%d,%d)", cell.X, cell.Y)
		}
	}

	// A second create is blocked while the game is not over.
	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientCreateBoard, Size: 5, Risk: 0.2})
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Cannot create a new game while current game is in progress" {
		t.Errorf("duplicate create rejection %#v", e)
	}

	// Reconnect replays the masked board.
	m.HandleConnect(ctx, uid)
	frames := msgr.sentTo(uid)
	gb, ok := hasFrame[models.GameBoardMessage](frames)
	if !ok {
		t.Fatalf("no gameBoard frame on reconnect")
	}
	if gb.GameState != models.BoardWaiting || gb.TimeRemaining != nil {
		t.Errorf("replayed board %#v", gb)
	}
	if _, ok := hasFrame[models.ClaimInfoMessage](frames); !ok {
		t.Errorf("no claimInfo frame on reconnect")
	}
}

func TestSoloConnectWithoutGame(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	m.HandleConnect(ctx, uid)
	nb, ok := hasFrame[models.NoBoardMessage](msgr.sentTo(uid))
	if !ok || nb.Message != "No existing game found. Create a new board to start playing." {
		t.Errorf("noBoard frame %#v", nb)
	}
}

func TestSoloSafeRevealStartsClock(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)
	plantSoloGame(t, m, uid, models.BoardPlaying, false)

	// (1,1) borders the mine, so no flood and no instant win.
	m.HandleMessage(ctx, uid, "solo", soloReveal(1, 1))

	g := m.mustLoad(t, uid)
	if g.State != models.BoardPlaying || g.RevealedCount != 1 {
		t.Fatalf("game state %s revealed %d", g.State, g.RevealedCount)
	}
	if !g.board().At(1, 1).Revealed {
		t.Errorf("cell not revealed")
	}

	frames := msgr.sentTo(uid)
	cd, ok := hasFrame[models.CountdownMessage](frames)
	if !ok || cd.Time != 60 {
		t.Errorf("countdown frame %#v, want a fresh 60s clock", cd)
	}
	ci, ok := hasFrame[models.ClaimInfoMessage](frames)
	if !ok {
		t.Fatalf("no claimInfo frame")
	}
	if ci.CurrentMultiplier == nil || ci.RevealedCount == nil || *ci.RevealedCount != 1 {
		t.Errorf("claimInfo %#v", ci)
	}
	if ci.CashoutAmount == nil {
		t.Errorf("claimInfo has no cashout amount mid-game")
	}

	m.mu.Lock()
	_, clockRunning := m.clocks[uid]
	m.mu.Unlock()
	if !clockRunning {
		t.Errorf("no clock session registered")
	}
	m.stopClock(ctx, uid)
}

func TestSoloFirstMoveNeverHitsMine(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	// Mine sits exactly where the opening reveal lands.
	b := buildTestBoard(3, [2]int{0, 0})
	g := plantSoloGame(t, m, uid, models.BoardWaiting, true)
	g.Cells = b.Cells
	if err := m.saveGame(ctx, g); err != nil {
		t.Fatal(err)
	}

	m.HandleMessage(ctx, uid, "solo", soloReveal(0, 0))

	loaded := m.mustLoad(t, uid)
	if loaded.State == models.BoardLost {
		t.Fatalf("opening reveal lost the game")
	}
	if loaded.board().At(0, 0).IsMine {
		t.Errorf("mine still under the opening reveal")
	}
	if loaded.mineCount() != 1 {
		t.Errorf("mine count %d after shift, want 1", loaded.mineCount())
	}
	if loaded.FirstMove {
		t.Errorf("first-move flag not cleared")
	}
	if _, ok := hasFrame[models.BoardGameOverMessage](msgr.sentTo(uid)); ok {
		// A flood from the shifted layout can legitimately clear the board,
		// but it must then report a win, never a loss.
		if loaded.State != models.BoardWon {
			t.Errorf("game over frame without a win")
		}
	}
	m.stopClock(ctx, uid)
}

func TestSoloMineRevealLosesGame(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)
	plantSoloGame(t, m, uid, models.BoardPlaying, false)

	m.HandleMessage(ctx, uid, "solo", soloReveal(2, 2))

	g := m.mustLoad(t, uid)
	if g.State != models.BoardLost {
		t.Fatalf("game state %s, want lost", g.State)
	}
	for i := range g.Cells {
		if !g.Cells[i].Revealed {
			t.Fatalf("cell (%d,%d) not revealed after the loss", g.Cells[i].X, g.Cells[i].Y)
		}
	}

	gov, ok := hasFrame[models.BoardGameOverMessage](msgr.sentTo(uid))
	if !ok || gov.Won {
		t.Errorf("game over frame %#v, want a loss", gov)
	}

	// The board is dead now.
	m.HandleMessage(ctx, uid, "solo", soloReveal(0, 0))
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Cannot reveal cells when game is not active" {
		t.Errorf("post-loss reveal rejection %#v", e)
	}
}

func TestSoloFloodRevealWinsGame(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)
	plantSoloGame(t, m, uid, models.BoardPlaying, false)

	// (0,0) has no adjacent mines; the flood clears every safe cell.
	m.HandleMessage(ctx, uid, "solo", soloReveal(0, 0))

	g := m.mustLoad(t, uid)
	if g.State != models.BoardWon {
		t.Fatalf("game state %s, want won", g.State)
	}
	if g.RevealedCount != 1 {
		t.Errorf("flood cells counted as player reveals: %d", g.RevealedCount)
	}

	gov, ok := hasFrame[models.BoardGameOverMessage](msgr.sentTo(uid))
	if !ok || !gov.Won {
		t.Errorf("game over frame %#v, want a win", gov)
	}
	ci, ok := hasFrame[models.ClaimInfoMessage](msgr.sentTo(uid))
	if !ok || ci.CashoutAmount == nil {
		t.Errorf("claimInfo %#v, want a claimable amount", ci)
	}
}

func TestSoloFlagToggleAndGuards(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)
	plantSoloGame(t, m, uid, models.BoardWaiting, true)

	m.HandleMessage(ctx, uid, "solo", soloFlag(0, 1))
	if g := m.mustLoad(t, uid); !g.board().At(0, 1).Flagged {
		t.Errorf("flag not set")
	}
	m.HandleMessage(ctx, uid, "solo", soloFlag(0, 1))
	if g := m.mustLoad(t, uid); g.board().At(0, 1).Flagged {
		t.Errorf("flag not toggled off")
	}

	// A flagged cell cannot be revealed.
	m.HandleMessage(ctx, uid, "solo", soloFlag(1, 1))
	m.HandleMessage(ctx, uid, "solo", soloReveal(1, 1))
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Cell is already revealed or flagged" {
		t.Errorf("flagged reveal rejection %#v", e)
	}

	// A revealed cell cannot be flagged.
	m.HandleMessage(ctx, uid, "solo", soloFlag(1, 1))
	m.HandleMessage(ctx, uid, "solo", soloReveal(1, 1))
	m.HandleMessage(ctx, uid, "solo", soloFlag(1, 1))
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Cannot flag revealed cell" {
		t.Errorf("revealed flag rejection %#v", e)
	}
	m.stopClock(ctx, uid)
}

func TestSoloCashoutGuards(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	cashout := &models.ClientMessage{Type: models.ClientCashout, TxID: "0xdead"}

	m.HandleMessage(ctx, uid, "solo", cashout)
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "No active game found" {
		t.Errorf("no-game rejection %#v", e)
	}

	plantSoloGame(t, m, uid, models.BoardWaiting, true)
	m.HandleMessage(ctx, uid, "solo", cashout)
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Cannot cashout when game is not in progress" {
		t.Errorf("waiting-game rejection %#v", e)
	}

	g := m.mustLoad(t, uid)
	g.State = models.BoardPlaying
	g.FirstMove = false
	if err := m.saveGame(ctx, g); err != nil {
		t.Fatal(err)
	}
	m.HandleMessage(ctx, uid, "solo", cashout)
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Cannot cashout without revealing any cells" {
		t.Errorf("zero-reveal rejection %#v", e)
	}
}

func TestSoloCashoutPaysOutAndClaims(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	g := plantSoloGame(t, m, uid, models.BoardPlaying, false)
	g.RevealedCount = 3
	if err := m.saveGame(ctx, g); err != nil {
		t.Fatal(err)
	}

	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientCashout, TxID: "0xabc"})

	loaded := m.mustLoad(t, uid)
	if loaded.State != models.BoardWon {
		t.Fatalf("game state %s, want won", loaded.State)
	}
	if !loaded.Claim.IsClaimed() || loaded.Claim.TxID != "0xabc" {
		t.Errorf("claim %#v", loaded.Claim)
	}
	if !loaded.CanCreateNew() {
		t.Errorf("cashed-out game still blocks a new board")
	}

	ci, ok := hasFrame[models.ClaimInfoMessage](msgr.sentTo(uid))
	if !ok {
		t.Fatalf("no claimInfo frame")
	}
	want := 10 * CashoutMultiplier(3, 0.2, 3)
	if ci.CashoutAmount == nil || *ci.CashoutAmount != want {
		t.Errorf("cashout amount %v, want %v", ci.CashoutAmount, want)
	}
}

func TestSoloMultiplierTarget(t *testing.T) {
	ctx := context.Background()
	m, msgr, _, uid := soloFixture(t)

	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientMultiplierTarget, Size: 5, Risk: 0.4})
	mt, ok := hasFrame[models.MultiplierTargetMessage](msgr.sentTo(uid))
	if !ok {
		t.Fatalf("no multiplierTarget frame")
	}
	if want := CashoutMultiplier(5, 0.4, 25); mt.MaxMultiplier != want {
		t.Errorf("max multiplier %v, want %v", mt.MaxMultiplier, want)
	}

	m.HandleMessage(ctx, uid, "solo", &models.ClientMessage{Type: models.ClientMultiplierTarget, Size: 99, Risk: 0.4})
	if e, ok := lastError(msgr.sentTo(uid)); !ok || e.Message != "Grid size must be between 3 and 10" {
		t.Errorf("size rejection %#v", e)
	}
}

func TestSoloClockExpiryLosesGame(t *testing.T) {
	ctx := context.Background()
	m, msgr, st, uid := soloFixture(t)
	plantSoloGame(t, m, uid, models.BoardPlaying, false)

	session := uuid.New()
	m.mu.Lock()
	m.clocks[uid] = session
	m.mu.Unlock()

	m.expireClock(ctx, uid, session)

	g := m.mustLoad(t, uid)
	if g.State != models.BoardLost {
		t.Fatalf("game state %s, want lost", g.State)
	}

	frames := msgr.sentTo(uid)
	tu, ok := hasFrame[models.TimeUpMessage](frames)
	if !ok || tu.BoardSize != 3 {
		t.Errorf("timeUp frame %#v", tu)
	}
	if _, ok := hasFrame[models.ClaimInfoMessage](frames); !ok {
		t.Errorf("no claimInfo frame after expiry")
	}

	m.mu.Lock()
	_, still := m.clocks[uid]
	m.mu.Unlock()
	if still {
		t.Errorf("clock session not cleared")
	}
	if _, ok, _ := st.SingleCountdown(ctx, uid); ok {
		t.Errorf("stored countdown not cleared")
	}

	// A stale session id is a no-op.
	m.expireClock(ctx, uid, uuid.New())
}
