package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

func newCoordFixture(t *testing.T, kind models.GameKind, n int) (*Coordinator, *captureMessenger, *Session, []models.Player, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()
	msgr := newCaptureMessenger()
	c := NewCoordinator(testConfig(), st, msgr, nil)

	players := testPlayers(n)
	info := testLobby(kind)
	seedLobby(t, st, info, players)

	s, err := c.Session(ctx, info.ID)
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	return c, msgr, s, players, st
}

// startMatch puts the session mid-game with a deterministic turn order.
func startMatch(ctx context.Context, t *testing.T, s *Session, st store.Store, players []models.Player) {
	t.Helper()
	s.mu.Lock()
	s.Started = true
	s.Active = s.Active[:0]
	for _, p := range players {
		s.Active = append(s.Active, p.ID)
	}
	s.CurrentTurn = players[0].ID
	s.mu.Unlock()
	for _, p := range players {
		if err := st.AddConnected(ctx, s.LobbyID, p.ID); err != nil {
			t.Fatal(err)
		}
	}
}

func hasFrame[T models.ServerMessage](frames []models.ServerMessage) (T, bool) {
	for _, f := range frames {
		if m, ok := f.(T); ok {
			return m, true
		}
	}
	var zero T
	return zero, false
}

func TestEliminationHandsTurnToSuccessor(t *testing.T) {
	ctx := context.Background()
	c, msgr, s, players, st := newCoordFixture(t, models.GameLexiWars, 3)
	startMatch(ctx, t, s, st, players)

	eng, err := c.engine(models.GameLexiWars)
	if err != nil {
		t.Fatal(err)
	}

	// The middle player goes out; whoever now sits in their slot moves.
	s.mu.Lock()
	s.CurrentTurn = players[1].ID
	s.mu.Unlock()
	c.eliminate(ctx, s, eng, players[1].ID, models.EliminatedTimeout, nil)

	s.mu.Lock()
	turn := s.CurrentTurn
	active := append([]uuid.UUID(nil), s.Active...)
	s.mu.Unlock()

	if turn != players[2].ID {
		t.Errorf("turn went to %s, want the eliminated player's successor %s", turn, players[2].ID)
	}
	if len(active) != 2 || active[0] != players[0].ID || active[1] != players[2].ID {
		t.Errorf("active roster %v", active)
	}

	if rank, ok := hasFrame[models.RankMessage](msgr.sentTo(players[1].ID)); !ok || rank.Rank != "3" {
		t.Errorf("eliminated player got rank %#v, want 3", rank)
	}
	if _, ok := hasFrame[models.WarsPointMessage](msgr.sentTo(players[1].ID)); !ok {
		t.Errorf("eliminated player got no score frame")
	}

	elim, err := st.EliminatedPlayers(ctx, s.LobbyID)
	if err != nil || len(elim) != 1 || elim[0] != players[1].ID {
		t.Errorf("store eliminated list %v (%v)", elim, err)
	}
}

func TestEliminatingNextToLastEndsMatch(t *testing.T) {
	ctx := context.Background()
	c, msgr, s, players, st := newCoordFixture(t, models.GameLexiWars, 2)
	startMatch(ctx, t, s, st, players)

	eng, _ := c.engine(models.GameLexiWars)
	s.mu.Lock()
	s.CurrentTurn = players[1].ID
	s.mu.Unlock()
	c.eliminate(ctx, s, eng, players[1].ID, models.EliminatedTimeout, nil)

	broadcasts := msgr.allBroadcasts()
	if _, ok := hasFrame[models.GameOverMessage](broadcasts); !ok {
		t.Errorf("no gameOver broadcast")
	}
	fs, ok := hasFrame[models.FinalStandingMessage](broadcasts)
	if !ok {
		t.Fatalf("no finalStanding broadcast")
	}
	if len(fs.Standing) != 2 {
		t.Fatalf("standing has %d entries", len(fs.Standing))
	}
	if fs.Standing[0].Player.ID != players[0].ID || fs.Standing[0].Rank != 1 {
		t.Errorf("survivor standing %#v", fs.Standing[0])
	}
	if fs.Standing[1].Player.ID != players[1].ID || fs.Standing[1].Rank != 2 {
		t.Errorf("eliminated standing %#v", fs.Standing[1])
	}

	if rank, ok := hasFrame[models.RankMessage](msgr.sentTo(players[0].ID)); !ok || rank.Rank != "1" {
		t.Errorf("winner got rank %#v, want 1", rank)
	}

	if _, ok := c.sessions.Get(s.LobbyID); ok {
		t.Errorf("session still registered after the match ended")
	}
	if started, _ := st.Started(ctx, s.LobbyID); started {
		t.Errorf("match state not cleared in the store")
	}
	info, err := st.LobbyInfo(ctx, s.LobbyID)
	if err != nil || info.State != models.LobbyFinished {
		t.Errorf("lobby state %v (%v), want finished", info.State, err)
	}
}

func TestTimeoutAfterTurnMovedIsIgnored(t *testing.T) {
	ctx := context.Background()
	c, msgr, s, players, st := newCoordFixture(t, models.GameLexiWars, 3)
	startMatch(ctx, t, s, st, players)

	eng, _ := c.engine(models.GameLexiWars)

	// A move lands and hands the turn on just before the old holder's
	// timeout fires. The late timeout must not touch the roster.
	s.mu.Lock()
	s.CurrentTurn = players[1].ID
	s.mu.Unlock()
	c.eliminate(ctx, s, eng, players[0].ID, models.EliminatedTimeout, nil)

	s.mu.Lock()
	stillIn := indexOf(s.Active, players[0].ID) >= 0
	turn := s.CurrentTurn
	s.mu.Unlock()

	if !stillIn {
		t.Fatalf("player eliminated by a timeout that no longer owned the turn")
	}
	if turn != players[1].ID {
		t.Errorf("turn is %s, want untouched %s", turn, players[1].ID)
	}
	if _, ok := hasFrame[models.RankMessage](msgr.sentTo(players[0].ID)); ok {
		t.Errorf("rank frame sent for a superseded timeout")
	}
	elim, err := st.EliminatedPlayers(ctx, s.LobbyID)
	if err != nil || len(elim) != 0 {
		t.Errorf("store eliminated list %v (%v), want empty", elim, err)
	}
}

func TestMineEliminationBroadcastsForGridGame(t *testing.T) {
	ctx := context.Background()
	c, msgr, s, players, st := newCoordFixture(t, models.GameSweeper, 3)
	startMatch(ctx, t, s, st, players)

	eng, _ := c.engine(models.GameSweeper)
	mine := &models.CellPosition{X: 2, Y: 1}
	c.eliminate(ctx, s, eng, players[0].ID, models.EliminatedHitMine, mine)

	em, ok := hasFrame[models.EliminatedMessage](msgr.allBroadcasts())
	if !ok {
		t.Fatalf("no eliminated broadcast")
	}
	if em.Player.ID != players[0].ID || em.Reason != models.EliminatedHitMine {
		t.Errorf("eliminated frame %#v", em)
	}
	if em.MinePosition == nil || *em.MinePosition != *mine {
		t.Errorf("mine position %v, want %v", em.MinePosition, mine)
	}
}

func TestLateJoinerToldMatchAlreadyStarted(t *testing.T) {
	ctx := context.Background()
	c, msgr, s, players, st := newCoordFixture(t, models.GameLexiWars, 2)
	startMatch(ctx, t, s, st, players)

	late := models.Player{ID: uuid.New(), WalletAddress: "SPlate", Username: "late", State: models.PlayerReady}
	if err := c.HandleConnect(ctx, s.LobbyID, &late); err != nil {
		t.Fatal(err)
	}

	if _, ok := hasFrame[models.AlreadyStartedMessage](msgr.sentTo(late.ID)); !ok {
		t.Errorf("late joiner did not get alreadyStarted")
	}
}

func TestPingGetsPong(t *testing.T) {
	ctx := context.Background()
	c, msgr, s, players, _ := newCoordFixture(t, models.GameLexiWars, 2)

	c.HandleMessage(ctx, s.LobbyID, players[0].ID, &models.ClientMessage{Type: models.ClientPing, Ts: 42})

	pong, ok := hasFrame[models.PongMessage](msgr.sentTo(players[0].ID))
	if !ok || pong.Ts != 42 {
		t.Errorf("pong frame %#v", pong)
	}
}

func TestTurnTimerEliminatesOnTimeout(t *testing.T) {
	ctx := context.Background()

	st := store.NewMemoryStore()
	msgr := newCaptureMessenger()
	cfg := testConfig()
	cfg.WordTurnSecs = 0
	c := NewCoordinator(cfg, st, msgr, nil)

	players := testPlayers(3)
	info := testLobby(models.GameLexiWars)
	seedLobby(t, st, info, players)
	s, err := c.Session(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	startMatch(ctx, t, s, st, players)

	eng, _ := c.engine(models.GameLexiWars)
	c.startTurnTimer(s, eng, players[0].ID)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		gone := indexOf(s.Active, players[0].ID) < 0
		s.mu.Unlock()
		if gone {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.Active, players[0].ID) >= 0 {
		t.Fatalf("turn holder survived the timeout")
	}
	if s.CurrentTurn != players[1].ID {
		t.Errorf("turn went to %s, want %s", s.CurrentTurn, players[1].ID)
	}
}

func TestTurnTimerStopsWhenTurnMoves(t *testing.T) {
	ctx := context.Background()

	st := store.NewMemoryStore()
	msgr := newCaptureMessenger()
	cfg := testConfig()
	cfg.WordTurnSecs = 0
	c := NewCoordinator(cfg, st, msgr, nil)

	players := testPlayers(3)
	info := testLobby(models.GameLexiWars)
	seedLobby(t, st, info, players)
	s, err := c.Session(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	startMatch(ctx, t, s, st, players)

	c.startTurnTimer(s, mustEngine(t, c, models.GameLexiWars), players[0].ID)

	// The turn moves on before the window elapses.
	s.mu.Lock()
	s.CurrentTurn = players[1].ID
	s.mu.Unlock()

	time.Sleep(2500 * time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.Active, players[0].ID) < 0 {
		t.Errorf("stale timer eliminated a player whose turn had passed")
	}
}

func mustEngine(t *testing.T, c *Coordinator, kind models.GameKind) Engine {
	t.Helper()
	eng, err := c.engine(kind)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}
