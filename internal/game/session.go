package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// Session is the in-process state of one match. The mutex is the match's
// serialization point: every move, tick and admission decision for the
// lobby runs under it. Durable fields are written through to the store so
// a session can be rebuilt after a restart.
type Session struct {
	mu sync.Mutex

	LobbyID uuid.UUID
	Info    *models.LobbyInfo

	// Players is the full roster; Active holds the not-yet-eliminated ids
	// in turn order. Eliminated ids append in elimination order.
	Players    []models.Player
	Active     []uuid.UUID
	Eliminated []uuid.UUID

	CurrentTurn uuid.UUID
	Started     bool
	Finished    bool

	// Word-chain difficulty state.
	RuleIndex int
	Rule      RuleContext

	admissionRunning bool
}

func NewSession(info *models.LobbyInfo, players []models.Player, startingMinWordLength int) *Session {
	return &Session{
		LobbyID: info.ID,
		Info:    info,
		Players: players,
		Rule: RuleContext{
			MinWordLength: startingMinWordLength,
			RandomLetter:  RandomLetter(),
		},
	}
}

// player returns the roster entry for id. Callers hold s.mu.
func (s *Session) player(id uuid.UUID) (*models.Player, bool) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// rosterIDs returns every roster member's id. Callers hold s.mu.
func (s *Session) rosterIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Players))
	for i := range s.Players {
		ids[i] = s.Players[i].ID
	}
	return ids
}

// removeActive drops id from the active list, preserving order. Callers
// hold s.mu.
func (s *Session) removeActive(id uuid.UUID) {
	for i, a := range s.Active {
		if a == id {
			s.Active = append(s.Active[:i], s.Active[i+1:]...)
			return
		}
	}
}

// storeRuleState snapshots the difficulty state for the store. Callers
// hold s.mu.
func storeRuleState(s *Session) store.RuleState {
	return store.RuleState{
		RuleIndex:     s.RuleIndex,
		MinWordLength: s.Rule.MinWordLength,
		RandomLetter:  s.Rule.RandomLetter,
	}
}

// TurnOwner reports the current turn holder, if the match is running.
func (s *Session) TurnOwner() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Started || s.Finished {
		return uuid.Nil, false
	}
	return s.CurrentTurn, true
}

// Roster returns a copy of the full player list.
func (s *Session) Roster() []models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Player(nil), s.Players...)
}

// SessionRegistry maps live lobbies to sessions. Its lock only guards the
// map; per-match work contends on the session's own mutex.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[uuid.UUID]*Session)}
}

func (r *SessionRegistry) Get(lobbyID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[lobbyID]
	return s, ok
}

// GetOrCreate returns the existing session or installs the one built by
// create. Only one goroutine's create result is kept.
func (r *SessionRegistry) GetOrCreate(lobbyID uuid.UUID, create func() (*Session, error)) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[lobbyID]; ok {
		return s, nil
	}
	s, err := create()
	if err != nil {
		return nil, err
	}
	r.sessions[lobbyID] = s
	return s, nil
}

func (r *SessionRegistry) Delete(lobbyID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, lobbyID)
}

// RebuildSession reconstructs a session from the store after a restart.
// The store is the durable record; anything missing there resets to
// pre-start defaults.
func RebuildSession(ctx context.Context, st store.Store, lobbyID uuid.UUID, startingMinWordLength int) (*Session, error) {
	info, err := st.LobbyInfo(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	}
	players, err := st.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	}

	s := NewSession(info, players, startingMinWordLength)

	started, err := st.Started(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	}
	s.Started = started
	s.Finished = info.State == models.LobbyFinished

	if active, err := st.ActivePlayers(ctx, lobbyID); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	} else {
		s.Active = active
	}
	if eliminated, err := st.EliminatedPlayers(ctx, lobbyID); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	} else {
		s.Eliminated = eliminated
	}
	if turn, ok, err := st.CurrentTurn(ctx, lobbyID); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	} else if ok {
		s.CurrentTurn = turn
	}
	if rs, ok, err := st.GetRuleState(ctx, lobbyID); err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", lobbyID, err)
	} else if ok {
		s.RuleIndex = rs.RuleIndex
		s.Rule = RuleContext{MinWordLength: rs.MinWordLength, RandomLetter: rs.RandomLetter}
	}

	return s, nil
}
