package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// RuleState is the durable word-chain difficulty snapshot.
type RuleState struct {
	RuleIndex     int  `json:"ruleIndex"`
	MinWordLength int  `json:"minWordLength"`
	RandomLetter  byte `json:"randomLetter"`
}

// Store is the keyed persistence collaborator. All operations fail closed:
// an error means the caller must abort, never guess.
type Store interface {
	// Lobby descriptor and roster.
	LobbyInfo(ctx context.Context, lobbyID uuid.UUID) (*models.LobbyInfo, error)
	SaveLobbyInfo(ctx context.Context, info *models.LobbyInfo) error
	SetLobbyState(ctx context.Context, lobbyID uuid.UUID, state models.LobbyState) error
	LobbyPlayers(ctx context.Context, lobbyID uuid.UUID) ([]models.Player, error)
	Player(ctx context.Context, lobbyID, playerID uuid.UUID) (*models.Player, error)
	SavePlayer(ctx context.Context, lobbyID uuid.UUID, p *models.Player) error

	// Connected-player set, maintained by the connection registry.
	AddConnected(ctx context.Context, lobbyID, playerID uuid.UUID) error
	RemoveConnected(ctx context.Context, lobbyID, playerID uuid.UUID) error
	ConnectedPlayers(ctx context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error)

	// Match progress, written through by the session layer.
	SetStarted(ctx context.Context, lobbyID uuid.UUID, started bool) error
	Started(ctx context.Context, lobbyID uuid.UUID) (bool, error)
	SetCurrentTurn(ctx context.Context, lobbyID, playerID uuid.UUID) error
	CurrentTurn(ctx context.Context, lobbyID uuid.UUID) (uuid.UUID, bool, error)
	SetRuleState(ctx context.Context, lobbyID uuid.UUID, rs RuleState) error
	GetRuleState(ctx context.Context, lobbyID uuid.UUID) (RuleState, bool, error)
	SetActivePlayers(ctx context.Context, lobbyID uuid.UUID, ids []uuid.UUID) error
	ActivePlayers(ctx context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error)
	AppendEliminated(ctx context.Context, lobbyID, playerID uuid.UUID) error
	EliminatedPlayers(ctx context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error)
	SetCountdown(ctx context.Context, lobbyID uuid.UUID, secs int) error
	ClearMatchState(ctx context.Context, lobbyID uuid.UUID) error

	// Word dictionary and used-word tracking.
	SeedDictionary(ctx context.Context, words []string) error
	IsDictionaryWord(ctx context.Context, word string) (bool, error)
	AddUsedWord(ctx context.Context, lobbyID uuid.UUID, word string) error
	IsWordUsed(ctx context.Context, lobbyID uuid.UUID, word string) (bool, error)

	// Grid-reveal board state.
	SaveBoard(ctx context.Context, lobbyID uuid.UUID, b *models.Board) error
	Board(ctx context.Context, lobbyID uuid.UUID) (*models.Board, error)
	AddRevealed(ctx context.Context, lobbyID uuid.UUID, x, y int) error
	RevealedCells(ctx context.Context, lobbyID uuid.UUID) ([]models.CellPosition, error)

	// Single-player game records (opaque payload owned by the engine).
	SetSingleGame(ctx context.Context, userID uuid.UUID, payload string, ttl time.Duration) error
	SingleGame(ctx context.Context, userID uuid.UUID) (string, error)
	DeleteSingleGame(ctx context.Context, userID uuid.UUID) error
	SetSingleCountdown(ctx context.Context, userID uuid.UUID, secs uint64) error
	SingleCountdown(ctx context.Context, userID uuid.UUID) (uint64, bool, error)
	ClearSingleCountdown(ctx context.Context, userID uuid.UUID) error

	// Offline message queue, newest first on the wire, FIFO after drain.
	QueueMessage(ctx context.Context, lobbyID, playerID uuid.UUID, payload []byte, ttl time.Duration) error
	DrainQueued(ctx context.Context, lobbyID, playerID uuid.UUID) ([][]byte, error)
}
