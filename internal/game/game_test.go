package game

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/config"
	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// captureMessenger records every outbound frame for assertions.
type captureMessenger struct {
	mu         sync.Mutex
	sent       map[uuid.UUID][]models.ServerMessage
	broadcasts []models.ServerMessage
}

func newCaptureMessenger() *captureMessenger {
	return &captureMessenger{sent: make(map[uuid.UUID][]models.ServerMessage)}
}

func (m *captureMessenger) SendToPlayer(_ context.Context, _ uuid.UUID, playerID uuid.UUID, msg models.ServerMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[playerID] = append(m.sent[playerID], msg)
}

func (m *captureMessenger) Broadcast(_ context.Context, _ uuid.UUID, _ []uuid.UUID, msg models.ServerMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, msg)
}

func (m *captureMessenger) sentTo(playerID uuid.UUID) []models.ServerMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ServerMessage(nil), m.sent[playerID]...)
}

func (m *captureMessenger) allBroadcasts() []models.ServerMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ServerMessage(nil), m.broadcasts...)
}

func testConfig() *config.Config {
	return &config.Config{
		AdmissionWindowSecs:   0,
		WordTurnSecs:          30,
		SweeperTurnSecs:       30,
		SingleGameClockSecs:   60,
		OfflineQueueTTLSecs:   120,
		DefaultBoardSize:      8,
		DefaultMineRisk:       0.15,
		StartingMinWordLength: 4,
	}
}

func testPlayers(n int) []models.Player {
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.Player{
			ID:            uuid.New(),
			WalletAddress: "SP" + uuid.NewString()[:8],
			Username:      "player" + string(rune('a'+i)),
			State:         models.PlayerReady,
		}
	}
	return players
}

func testLobby(kind models.GameKind) *models.LobbyInfo {
	return &models.LobbyInfo{
		ID:        uuid.New(),
		Name:      "test lobby",
		CreatorID: uuid.New(),
		State:     models.LobbyWaiting,
		Game:      kind,
	}
}

// startedSession builds a session mid-match with every player active.
func startedSession(kind models.GameKind, players []models.Player) *Session {
	s := NewSession(testLobby(kind), players, 4)
	s.Started = true
	for _, p := range players {
		s.Active = append(s.Active, p.ID)
	}
	s.CurrentTurn = players[0].ID
	return s
}

// buildTestBoard lays out mines deterministically.
func buildTestBoard(size int, mines ...[2]int) *models.Board {
	b := &models.Board{Size: size, Cells: make([]models.Cell, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			b.Cells[y*size+x] = models.Cell{X: x, Y: y}
		}
	}
	for _, m := range mines {
		b.At(m[0], m[1]).IsMine = true
	}
	recountAdjacency(b)
	return b
}

func seedLobby(t *testing.T, st store.Store, info *models.LobbyInfo, players []models.Player) {
	t.Helper()
	ctx := context.Background()
	if err := st.SaveLobbyInfo(ctx, info); err != nil {
		t.Fatalf("save lobby: %v", err)
	}
	for i := range players {
		if err := st.SavePlayer(ctx, info.ID, &players[i]); err != nil {
			t.Fatalf("save player: %v", err)
		}
	}
}
