package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// MemoryStore is an in-process Store used by tests. TTLs are recorded but
// not enforced; tests drive expiry explicitly where it matters.
type MemoryStore struct {
	mu sync.Mutex

	lobbies    map[uuid.UUID]*models.LobbyInfo
	players    map[uuid.UUID]map[uuid.UUID]*models.Player
	connected  map[uuid.UUID]map[uuid.UUID]bool
	started    map[uuid.UUID]bool
	turns      map[uuid.UUID]uuid.UUID
	ruleStates map[uuid.UUID]RuleState
	active     map[uuid.UUID][]uuid.UUID
	eliminated map[uuid.UUID][]uuid.UUID
	countdowns map[uuid.UUID]int
	dictionary map[string]bool
	usedWords  map[uuid.UUID]map[string]bool
	boards     map[uuid.UUID]*models.Board
	revealed   map[uuid.UUID][]models.CellPosition
	singles    map[uuid.UUID]string
	singleCDs  map[uuid.UUID]uint64
	queues     map[string][][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lobbies:    make(map[uuid.UUID]*models.LobbyInfo),
		players:    make(map[uuid.UUID]map[uuid.UUID]*models.Player),
		connected:  make(map[uuid.UUID]map[uuid.UUID]bool),
		started:    make(map[uuid.UUID]bool),
		turns:      make(map[uuid.UUID]uuid.UUID),
		ruleStates: make(map[uuid.UUID]RuleState),
		active:     make(map[uuid.UUID][]uuid.UUID),
		eliminated: make(map[uuid.UUID][]uuid.UUID),
		countdowns: make(map[uuid.UUID]int),
		dictionary: make(map[string]bool),
		usedWords:  make(map[uuid.UUID]map[string]bool),
		boards:     make(map[uuid.UUID]*models.Board),
		revealed:   make(map[uuid.UUID][]models.CellPosition),
		singles:    make(map[uuid.UUID]string),
		singleCDs:  make(map[uuid.UUID]uint64),
		queues:     make(map[string][][]byte),
	}
}

func (s *MemoryStore) LobbyInfo(_ context.Context, lobbyID uuid.UUID) (*models.LobbyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.lobbies[lobbyID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *info
	return &cp, nil
}

func (s *MemoryStore) SaveLobbyInfo(_ context.Context, info *models.LobbyInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *info
	s.lobbies[info.ID] = &cp
	return nil
}

func (s *MemoryStore) SetLobbyState(_ context.Context, lobbyID uuid.UUID, state models.LobbyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.lobbies[lobbyID]
	if !ok {
		return ErrNotFound
	}
	info.State = state
	return nil
}

func (s *MemoryStore) LobbyPlayers(_ context.Context, lobbyID uuid.UUID) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Player, 0, len(s.players[lobbyID]))
	for _, p := range s.players[lobbyID] {
		out = append(out, *p)
	}
	return out, nil
}

func (s *MemoryStore) Player(_ context.Context, lobbyID, playerID uuid.UUID) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[lobbyID][playerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) SavePlayer(_ context.Context, lobbyID uuid.UUID, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[lobbyID] == nil {
		s.players[lobbyID] = make(map[uuid.UUID]*models.Player)
	}
	cp := *p
	s.players[lobbyID][p.ID] = &cp
	return nil
}

func (s *MemoryStore) AddConnected(_ context.Context, lobbyID, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected[lobbyID] == nil {
		s.connected[lobbyID] = make(map[uuid.UUID]bool)
	}
	s.connected[lobbyID][playerID] = true
	return nil
}

func (s *MemoryStore) RemoveConnected(_ context.Context, lobbyID, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connected[lobbyID], playerID)
	return nil
}

func (s *MemoryStore) ConnectedPlayers(_ context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.connected[lobbyID]))
	for id := range s.connected[lobbyID] {
		out = append(out, id)
	}
	return out, nil
}

func (s *MemoryStore) SetStarted(_ context.Context, lobbyID uuid.UUID, started bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[lobbyID] = started
	return nil
}

func (s *MemoryStore) Started(_ context.Context, lobbyID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started[lobbyID], nil
}

func (s *MemoryStore) SetCurrentTurn(_ context.Context, lobbyID, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[lobbyID] = playerID
	return nil
}

func (s *MemoryStore) CurrentTurn(_ context.Context, lobbyID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.turns[lobbyID]
	return id, ok, nil
}

func (s *MemoryStore) SetRuleState(_ context.Context, lobbyID uuid.UUID, rs RuleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ruleStates[lobbyID] = rs
	return nil
}

func (s *MemoryStore) GetRuleState(_ context.Context, lobbyID uuid.UUID) (RuleState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.ruleStates[lobbyID]
	return rs, ok, nil
}

func (s *MemoryStore) SetActivePlayers(_ context.Context, lobbyID uuid.UUID, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[lobbyID] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (s *MemoryStore) ActivePlayers(_ context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.active[lobbyID]...), nil
}

func (s *MemoryStore) AppendEliminated(_ context.Context, lobbyID, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eliminated[lobbyID] = append(s.eliminated[lobbyID], playerID)
	return nil
}

func (s *MemoryStore) EliminatedPlayers(_ context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.eliminated[lobbyID]...), nil
}

func (s *MemoryStore) SetCountdown(_ context.Context, lobbyID uuid.UUID, secs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdowns[lobbyID] = secs
	return nil
}

func (s *MemoryStore) ClearMatchState(_ context.Context, lobbyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.started, lobbyID)
	delete(s.turns, lobbyID)
	delete(s.ruleStates, lobbyID)
	delete(s.active, lobbyID)
	delete(s.eliminated, lobbyID)
	delete(s.countdowns, lobbyID)
	delete(s.usedWords, lobbyID)
	delete(s.boards, lobbyID)
	delete(s.revealed, lobbyID)
	return nil
}

func (s *MemoryStore) SeedDictionary(_ context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range words {
		s.dictionary[w] = true
	}
	return nil
}

func (s *MemoryStore) IsDictionaryWord(_ context.Context, word string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dictionary[word], nil
}

func (s *MemoryStore) AddUsedWord(_ context.Context, lobbyID uuid.UUID, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usedWords[lobbyID] == nil {
		s.usedWords[lobbyID] = make(map[string]bool)
	}
	s.usedWords[lobbyID][word] = true
	return nil
}

func (s *MemoryStore) IsWordUsed(_ context.Context, lobbyID uuid.UUID, word string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedWords[lobbyID][word], nil
}

func (s *MemoryStore) SaveBoard(_ context.Context, lobbyID uuid.UUID, b *models.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	cp.Cells = append([]models.Cell(nil), b.Cells...)
	s.boards[lobbyID] = &cp
	return nil
}

func (s *MemoryStore) Board(_ context.Context, lobbyID uuid.UUID) (*models.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[lobbyID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	cp.Cells = append([]models.Cell(nil), b.Cells...)
	return &cp, nil
}

func (s *MemoryStore) AddRevealed(_ context.Context, lobbyID uuid.UUID, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revealed[lobbyID] = append(s.revealed[lobbyID], models.CellPosition{X: x, Y: y})
	return nil
}

func (s *MemoryStore) RevealedCells(_ context.Context, lobbyID uuid.UUID) ([]models.CellPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CellPosition(nil), s.revealed[lobbyID]...), nil
}

func (s *MemoryStore) SetSingleGame(_ context.Context, userID uuid.UUID, payload string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singles[userID] = payload
	return nil
}

func (s *MemoryStore) SingleGame(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.singles[userID]
	if !ok {
		return "", ErrNotFound
	}
	return payload, nil
}

func (s *MemoryStore) DeleteSingleGame(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.singles, userID)
	return nil
}

func (s *MemoryStore) SetSingleCountdown(_ context.Context, userID uuid.UUID, secs uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singleCDs[userID] = secs
	return nil
}

func (s *MemoryStore) SingleCountdown(_ context.Context, userID uuid.UUID) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secs, ok := s.singleCDs[userID]
	return secs, ok, nil
}

func (s *MemoryStore) ClearSingleCountdown(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.singleCDs, userID)
	return nil
}

func (s *MemoryStore) QueueMessage(_ context.Context, lobbyID, playerID uuid.UUID, payload []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lobbyID.String() + ":" + playerID.String()
	cp := append([]byte(nil), payload...)
	s.queues[key] = append(s.queues[key], cp)
	return nil
}

func (s *MemoryStore) DrainQueued(_ context.Context, lobbyID, playerID uuid.UUID) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lobbyID.String() + ":" + playerID.String()
	out := s.queues[key]
	delete(s.queues, key)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
