package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

func admissionFixture(t *testing.T, n, connected int) (*Coordinator, *captureMessenger, *Session, []models.Player, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	c, msgr, s, players, st := newCoordFixture(t, models.GameLexiWars, n)
	for i := 0; i < connected; i++ {
		if err := st.AddConnected(ctx, s.LobbyID, players[i].ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.SetLobbyState(ctx, s.LobbyID, models.LobbyStarting); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	s.Info.State = models.LobbyStarting
	s.admissionRunning = true
	s.mu.Unlock()
	return c, msgr, s, players, st
}

func TestAdmissionStartsWithQuorum(t *testing.T) {
	ctx := context.Background()

	// Window of zero: the decision falls on the first tick. Two of three
	// meet the at-least-half floor.
	c, msgr, s, players, st := admissionFixture(t, 3, 2)
	c.runAdmission(ctx, s)

	s.mu.Lock()
	started := s.Started
	active := append([]uuid.UUID(nil), s.Active...)
	turn := s.CurrentTurn
	s.mu.Unlock()

	if !started {
		t.Fatalf("match did not start with a quorum")
	}
	if len(active) != 2 {
		t.Errorf("active roster %v, want the two connected players", active)
	}
	if turn != players[0].ID && turn != players[1].ID {
		t.Errorf("first turn went to %s, not a connected player", turn)
	}

	broadcasts := msgr.allBroadcasts()
	if start := findStarted(broadcasts); !start.Started {
		t.Errorf("no started=true frame broadcast")
	}
	if _, ok := hasFrame[models.RuleMessage](broadcasts); !ok {
		t.Errorf("no opening rule broadcast")
	}
	if _, ok := hasFrame[models.TurnMessage](broadcasts); !ok {
		t.Errorf("no opening turn broadcast")
	}

	info, err := st.LobbyInfo(ctx, s.LobbyID)
	if err != nil || info.State != models.LobbyInProgress {
		t.Errorf("lobby state %v (%v), want inProgress", info.State, err)
	}
	if ok, _ := st.Started(ctx, s.LobbyID); !ok {
		t.Errorf("started flag not written through")
	}
}

// findStarted digs out a start frame with started=true; the countdown also
// emits start frames with started=false.
func findStarted(frames []models.ServerMessage) models.StartMessage {
	for _, f := range frames {
		if m, ok := f.(models.StartMessage); ok && m.Started {
			return m
		}
	}
	return models.StartMessage{}
}

func TestAdmissionFailsBelowQuorum(t *testing.T) {
	ctx := context.Background()

	c, msgr, s, players, st := admissionFixture(t, 3, 1)
	c.runAdmission(ctx, s)

	s.mu.Lock()
	started := s.Started
	running := s.admissionRunning
	s.mu.Unlock()

	if started {
		t.Fatalf("match started with one of three connected")
	}
	if running {
		t.Errorf("admission flag still set after failure")
	}
	if _, ok := hasFrame[models.StartFailedMessage](msgr.sentTo(players[0].ID)); !ok {
		t.Errorf("connected player did not get startFailed")
	}
	info, err := st.LobbyInfo(ctx, s.LobbyID)
	if err != nil || info.State != models.LobbyWaiting {
		t.Errorf("lobby state %v (%v), want waiting", info.State, err)
	}
}

func TestAdmissionCancelledWhenLobbyStateChanges(t *testing.T) {
	ctx := context.Background()

	c, msgr, s, players, st := admissionFixture(t, 3, 2)
	// The lobby leaves the starting state before the first tick lands.
	if err := st.SetLobbyState(ctx, s.LobbyID, models.LobbyWaiting); err != nil {
		t.Fatal(err)
	}
	c.runAdmission(ctx, s)

	s.mu.Lock()
	started := s.Started
	running := s.admissionRunning
	s.mu.Unlock()

	if started {
		t.Fatalf("match started after the lobby left the starting state")
	}
	if running {
		t.Errorf("admission flag still set after cancellation")
	}
	if got := msgr.sentTo(players[0].ID); len(got) != 0 {
		t.Errorf("cancelled countdown still sent %d frames", len(got))
	}
	if got := msgr.allBroadcasts(); len(got) != 0 {
		t.Errorf("cancelled countdown still broadcast %d frames", len(got))
	}
}

func TestFirstTurnFollowsRosterOrder(t *testing.T) {
	ctx := context.Background()

	c, _, s, players, st := admissionFixture(t, 3, 0)
	// Connect the later-seated players in reverse; seating order, not
	// connection order, decides who opens.
	for _, p := range []models.Player{players[2], players[1]} {
		if err := st.AddConnected(ctx, s.LobbyID, p.ID); err != nil {
			t.Fatal(err)
		}
	}
	s.mu.Lock()
	s.Players = append([]models.Player(nil), players...)
	s.mu.Unlock()

	c.runAdmission(ctx, s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Started {
		t.Fatalf("match did not start")
	}
	if len(s.Active) != 2 || s.Active[0] != players[1].ID || s.Active[1] != players[2].ID {
		t.Errorf("active roster %v, want %s then %s", s.Active, players[1].ID, players[2].ID)
	}
	if s.CurrentTurn != players[1].ID {
		t.Errorf("first turn went to %s, want the first connected player in seating order %s", s.CurrentTurn, players[1].ID)
	}
}

func TestAdmissionStartsEarlyWhenAllConnected(t *testing.T) {
	ctx := context.Background()

	c, _, s, _, _ := admissionFixture(t, 3, 3)
	c.cfg.AdmissionWindowSecs = 30 // the early-start path must not wait this out

	done := make(chan struct{})
	go func() {
		c.runAdmission(ctx, s)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("admission did not start early with a full roster")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Started {
		t.Errorf("match not started")
	}
	if len(s.Active) != 3 {
		t.Errorf("active roster %v, want all three", s.Active)
	}
}
