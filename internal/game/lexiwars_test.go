package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

func newLexiFixture(t *testing.T, words ...string) (*LexiWarsEngine, *Session, []models.Player, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.SeedDictionary(context.Background(), words); err != nil {
		t.Fatalf("seed dictionary: %v", err)
	}
	players := testPlayers(2)
	s := startedSession(models.GameLexiWars, players)
	return NewLexiWarsEngine(st, 15), s, players, st
}

func wordMsg(word string) *models.ClientMessage {
	return &models.ClientMessage{Type: models.ClientWordEntry, Word: word}
}

func TestWordBeforeStartRejected(t *testing.T) {
	eng, s, players, _ := newLexiFixture(t, "stone")
	s.Started = false
	_, err := eng.Apply(context.Background(), s, &players[0], wordMsg("stone"))
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("got %v, want ErrNotStarted", err)
	}
}

func TestWordOutOfTurnRejected(t *testing.T) {
	eng, s, players, _ := newLexiFixture(t, "stone")
	_, err := eng.Apply(context.Background(), s, &players[1], wordMsg("stone"))
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("got %v, want ErrNotYourTurn", err)
	}
}

func TestWordValidationOrder(t *testing.T) {
	ctx := context.Background()

	// A word already played bounces before anything else.
	eng, s, players, st := newLexiFixture(t, "stone")
	if err := st.AddUsedWord(ctx, s.LobbyID, "stone"); err != nil {
		t.Fatal(err)
	}
	out, err := eng.Apply(ctx, s, &players[0], wordMsg("stone"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.Reject.(models.UsedWordMessage); !ok {
		t.Fatalf("got %T, want UsedWordMessage", out.Reject)
	}

	// A word the dictionary does not know.
	out, err = eng.Apply(ctx, s, &players[0], wordMsg("zzzz"))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := out.Reject.(models.ValidateMessage)
	if !ok || v.Msg != "Invalid word" {
		t.Fatalf("got %#v, want Invalid word validate", out.Reject)
	}
}

func TestWordLengthFloorAppliesToEveryRule(t *testing.T) {
	ctx := context.Background()
	eng, s, players, _ := newLexiFixture(t, "cat")

	// Rule 1 is contains_letter; the floor still applies first.
	s.RuleIndex = 1
	s.Rule.RandomLetter = 'a'

	out, err := eng.Apply(ctx, s, &players[0], wordMsg("cat"))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := out.Reject.(models.ValidateMessage)
	if !ok || v.Msg != "Word must be at least 4 characters!" {
		t.Fatalf("got %#v, want length floor rejection", out.Reject)
	}
}

func TestWordFailingActiveRuleRejected(t *testing.T) {
	ctx := context.Background()
	eng, s, players, _ := newLexiFixture(t, "stone")

	s.RuleIndex = 1
	s.Rule.RandomLetter = 'z'

	out, err := eng.Apply(ctx, s, &players[0], wordMsg("stone"))
	if err != nil {
		t.Fatal(err)
	}
	v, ok := out.Reject.(models.ValidateMessage)
	if !ok || v.Msg != "Word must contain 'z'" {
		t.Fatalf("got %#v, want rule rejection", out.Reject)
	}
}

func TestAcceptedWordAdvancesTurn(t *testing.T) {
	ctx := context.Background()
	eng, s, players, st := newLexiFixture(t, "stone")

	out, err := eng.Apply(ctx, s, &players[0], wordMsg("Stone "))
	if err != nil {
		t.Fatal(err)
	}
	if out.Reject != nil {
		t.Fatalf("unexpected rejection %#v", out.Reject)
	}
	if len(out.Broadcasts) != 3 {
		t.Fatalf("got %d broadcasts, want rule+wordEntry+turn", len(out.Broadcasts))
	}
	if _, ok := out.Broadcasts[0].(models.RuleMessage); !ok {
		t.Errorf("first broadcast is %T, want RuleMessage", out.Broadcasts[0])
	}
	we, ok := out.Broadcasts[1].(models.WordEntryMessage)
	if !ok || we.Word != "stone" {
		t.Errorf("second broadcast %#v, want wordEntry stone", out.Broadcasts[1])
	}
	if out.NextTurn != players[1].ID {
		t.Errorf("turn went to %s, want %s", out.NextTurn, players[1].ID)
	}
	if s.CurrentTurn != players[1].ID {
		t.Errorf("session turn not advanced")
	}

	used, err := st.IsWordUsed(ctx, s.LobbyID, "stone")
	if err != nil || !used {
		t.Errorf("used word not recorded (used=%v err=%v)", used, err)
	}
	if turn, ok, _ := st.CurrentTurn(ctx, s.LobbyID); !ok || turn != players[1].ID {
		t.Errorf("store turn not mirrored")
	}

	if p, _ := s.player(players[0].ID); len(p.UsedWords) != 1 || p.UsedWords[0] != "stone" {
		t.Errorf("mover's word list not updated: %v", p.UsedWords)
	}
}

func TestRosterWrapAdvancesRule(t *testing.T) {
	ctx := context.Background()
	eng, s, players, _ := newLexiFixture(t, "stone")

	// Last player in the order commits; the wrap moves the catalog on.
	s.CurrentTurn = players[1].ID
	out, err := eng.Apply(ctx, s, &players[1], wordMsg("stone"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Reject != nil {
		t.Fatalf("unexpected rejection %#v", out.Reject)
	}
	if s.RuleIndex != 1 {
		t.Errorf("rule index %d, want 1 after wrap", s.RuleIndex)
	}
	if s.Rule.MinWordLength != 4 {
		t.Errorf("min length should not change mid-cycle, got %d", s.Rule.MinWordLength)
	}
}

func TestFullRuleCycleRaisesFloor(t *testing.T) {
	ctx := context.Background()
	eng, s, players, _ := newLexiFixture(t, "ride")

	// Sitting on the last rule (equal vowels/consonants); the next wrap
	// completes the catalog cycle.
	s.RuleIndex = NumRules() - 1
	s.CurrentTurn = players[1].ID

	out, err := eng.Apply(ctx, s, &players[1], wordMsg("ride"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Reject != nil {
		t.Fatalf("unexpected rejection %#v", out.Reject)
	}
	if s.RuleIndex != 0 {
		t.Errorf("rule index %d, want 0", s.RuleIndex)
	}
	if s.Rule.MinWordLength != 6 {
		t.Errorf("min length %d, want 6 after a full cycle", s.Rule.MinWordLength)
	}
}
