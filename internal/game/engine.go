package game

import (
	"context"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// MoveOutcome is what an engine decided about one move. The coordinator
// turns it into broadcasts, eliminations and turn changes.
type MoveOutcome struct {
	// Reject is non-nil when the move was invalid. It goes to the mover
	// only and the turn does not change.
	Reject models.ServerMessage

	// Broadcasts are room-wide frames describing a committed move, in
	// order.
	Broadcasts []models.ServerMessage

	// EliminateMover marks the mover as knocked out by their own move.
	EliminateMover bool
	Reason         models.EliminationReason
	MinePosition   *models.CellPosition

	// Completed marks a finished match (win condition met).
	Completed bool

	// NextTurn is the player to hand the turn to when the match
	// continues. Zero when the mover was eliminated or the match ended.
	NextTurn uuid.UUID
}

// Engine is the game-specific half of a match: it validates and applies
// moves and sets up per-game state at start. The coordinator owns turns,
// timers and elimination.
type Engine interface {
	Kind() models.GameKind

	// TurnSeconds is the per-turn countdown window.
	TurnSeconds() int

	// Begin prepares game state when admission succeeds and returns the
	// opening room-wide frames. Called with the session lock held by the
	// coordinator's start path.
	Begin(ctx context.Context, s *Session) ([]models.ServerMessage, error)

	// Apply validates and applies one move for the turn holder.
	Apply(ctx context.Context, s *Session, mover *models.Player, m *models.ClientMessage) (*MoveOutcome, error)

	// GameOverFrame is the room-wide end-of-match frame sent before the
	// final standing.
	GameOverFrame() models.ServerMessage
}
