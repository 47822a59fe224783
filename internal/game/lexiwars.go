package game

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// LexiWarsEngine runs the word-chain game. Each accepted word hands the
// turn to the next active player; a full wrap of the roster advances the
// rule, and a full cycle of the rule catalog raises the minimum length.
type LexiWarsEngine struct {
	store       store.Store
	turnSeconds int
}

func NewLexiWarsEngine(st store.Store, turnSeconds int) *LexiWarsEngine {
	return &LexiWarsEngine{store: st, turnSeconds: turnSeconds}
}

func (e *LexiWarsEngine) Kind() models.GameKind { return models.GameLexiWars }
func (e *LexiWarsEngine) TurnSeconds() int      { return e.turnSeconds }

func (e *LexiWarsEngine) GameOverFrame() models.ServerMessage {
	return models.NewGameOver()
}

func (e *LexiWarsEngine) Begin(_ context.Context, s *Session) ([]models.ServerMessage, error) {
	rule, ok := RuleByIndex(s.RuleIndex)
	if !ok {
		return nil, fmt.Errorf("rule index %d out of range", s.RuleIndex)
	}
	return []models.ServerMessage{models.NewRule(rule.Description(s.Rule))}, nil
}

func (e *LexiWarsEngine) Apply(ctx context.Context, s *Session, mover *models.Player, m *models.ClientMessage) (*MoveOutcome, error) {
	word := strings.ToLower(strings.TrimSpace(m.Word))

	// Store lookups happen before the match lock; only the turn holder can
	// commit, so a stale read here cannot corrupt state.
	used, err := e.store.IsWordUsed(ctx, s.LobbyID, word)
	if err != nil {
		return nil, err
	}
	inDictionary, err := e.store.IsDictionaryWord(ctx, word)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.Started || s.Finished {
		s.mu.Unlock()
		return nil, ErrNotStarted
	}
	if s.CurrentTurn != mover.ID {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}

	rule, ok := RuleByIndex(s.RuleIndex)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("rule index %d out of range", s.RuleIndex)
	}

	// Validation order: used word, dictionary, length floor, active rule.
	if used {
		s.mu.Unlock()
		return &MoveOutcome{Reject: models.NewUsedWord(word)}, nil
	}
	if !inDictionary {
		s.mu.Unlock()
		return &MoveOutcome{Reject: models.NewValidate("Invalid word")}, nil
	}
	if rule.Name != "min_length" && len(word) < s.Rule.MinWordLength {
		s.mu.Unlock()
		return &MoveOutcome{
			Reject: models.NewValidate(fmt.Sprintf("Word must be at least %d characters!", s.Rule.MinWordLength)),
		}, nil
	}
	if err := rule.Validate(word, s.Rule); err != nil {
		s.mu.Unlock()
		return &MoveOutcome{Reject: models.NewValidate(err.Error())}, nil
	}

	// Commit: record the word and hand the turn on.
	roster := *mover
	if p, ok := s.player(mover.ID); ok {
		p.UsedWords = append(p.UsedWords, word)
		roster = *p
	}

	pos := indexOf(s.Active, mover.ID)
	if pos < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("mover %s not in active list", mover.ID)
	}
	nextIndex := (pos + 1) % len(s.Active)
	nextID := s.Active[nextIndex]

	if nextIndex == 0 {
		// Roster wrapped: advance the rule, and after a full catalog cycle
		// raise the difficulty floor.
		s.RuleIndex = (s.RuleIndex + 1) % NumRules()
		if s.RuleIndex == 0 {
			s.Rule.MinWordLength += 2
		}
	}
	s.Rule.RandomLetter = RandomLetter()
	s.CurrentTurn = nextID

	nextRule, _ := RuleByIndex(s.RuleIndex)
	ruleDesc := nextRule.Description(s.Rule)
	nextPlayer, _ := s.player(nextID)
	next := *nextPlayer
	ruleSnapshot := store.RuleState{
		RuleIndex:     s.RuleIndex,
		MinWordLength: s.Rule.MinWordLength,
		RandomLetter:  s.Rule.RandomLetter,
	}
	s.mu.Unlock()

	// Write-through mirror; the in-memory session stays authoritative if a
	// write fails, and the failure is visible in the log.
	if err := e.store.AddUsedWord(ctx, s.LobbyID, word); err != nil {
		log.Printf("[STORE] add used word failed for lobby %s: %v", s.LobbyID, err)
	}
	if err := e.store.SavePlayer(ctx, s.LobbyID, &roster); err != nil {
		log.Printf("[STORE] save player %s failed: %v", roster.ID, err)
	}
	if err := e.store.SetCurrentTurn(ctx, s.LobbyID, nextID); err != nil {
		log.Printf("[STORE] set current turn failed for lobby %s: %v", s.LobbyID, err)
	}
	if err := e.store.SetRuleState(ctx, s.LobbyID, ruleSnapshot); err != nil {
		log.Printf("[STORE] set rule state failed for lobby %s: %v", s.LobbyID, err)
	}

	return &MoveOutcome{
		Broadcasts: []models.ServerMessage{
			models.NewRule(ruleDesc),
			models.NewWordEntry(word, roster),
			models.NewTurn(next, e.turnSeconds),
		},
		NextTurn: nextID,
	}, nil
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
