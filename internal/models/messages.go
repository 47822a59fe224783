package models

import (
	"encoding/json"
)

// ServerMessage is any outbound frame. Durable messages are queued for
// offline players with a TTL; ephemeral ones are dropped when the target
// has no live connection.
type ServerMessage interface {
	Durable() bool
}

// Marshal encodes a server message to its wire form.
func Marshal(m ServerMessage) ([]byte, error) {
	return json.Marshal(m)
}

type TurnMessage struct {
	Type        string `json:"type"`
	CurrentTurn Player `json:"currentTurn"`
	Countdown   int    `json:"countdown"`
}

func NewTurn(p Player, countdown int) TurnMessage {
	return TurnMessage{Type: "turn", CurrentTurn: p, Countdown: countdown}
}
func (TurnMessage) Durable() bool { return false }

type RuleMessage struct {
	Type string `json:"type"`
	Rule string `json:"rule"`
}

func NewRule(rule string) RuleMessage { return RuleMessage{Type: "rule", Rule: rule} }
func (RuleMessage) Durable() bool     { return false }

type CountdownMessage struct {
	Type string `json:"type"`
	Time uint64 `json:"time"`
}

func NewCountdown(secs uint64) CountdownMessage {
	return CountdownMessage{Type: "countdown", Time: secs}
}
func (CountdownMessage) Durable() bool { return false }

type PongMessage struct {
	Type string `json:"type"`
	Ts   uint64 `json:"ts"`
	Pong uint64 `json:"pong"`
}

func NewPong(ts, pong uint64) PongMessage { return PongMessage{Type: "pong", Ts: ts, Pong: pong} }
func (PongMessage) Durable() bool         { return false }

// StartMessage carries the admission countdown while started is false and
// the actual match start once it flips. Only the latter survives a
// disconnect.
type StartMessage struct {
	Type    string `json:"type"`
	Time    uint32 `json:"time"`
	Started bool   `json:"started"`
}

func NewStart(secs uint32, started bool) StartMessage {
	return StartMessage{Type: "start", Time: secs, Started: started}
}
func (m StartMessage) Durable() bool { return m.Started }

type StartFailedMessage struct {
	Type string `json:"type"`
}

func NewStartFailed() StartFailedMessage { return StartFailedMessage{Type: "startFailed"} }
func (StartFailedMessage) Durable() bool { return true }

type AlreadyStartedMessage struct {
	Type string `json:"type"`
}

func NewAlreadyStarted() AlreadyStartedMessage {
	return AlreadyStartedMessage{Type: "alreadyStarted"}
}
func (AlreadyStartedMessage) Durable() bool { return true }

type RankMessage struct {
	Type string `json:"type"`
	Rank string `json:"rank"`
}

func NewRank(rank string) RankMessage { return RankMessage{Type: "rank", Rank: rank} }
func (RankMessage) Durable() bool     { return true }

type ValidateMessage struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

func NewValidate(msg string) ValidateMessage { return ValidateMessage{Type: "validate", Msg: msg} }
func (ValidateMessage) Durable() bool        { return true }

type WordEntryMessage struct {
	Type   string `json:"type"`
	Word   string `json:"word"`
	Sender Player `json:"sender"`
}

func NewWordEntry(word string, sender Player) WordEntryMessage {
	return WordEntryMessage{Type: "wordEntry", Word: word, Sender: sender}
}
func (WordEntryMessage) Durable() bool { return true }

type UsedWordMessage struct {
	Type string `json:"type"`
	Word string `json:"word"`
}

func NewUsedWord(word string) UsedWordMessage {
	return UsedWordMessage{Type: "usedWord", Word: word}
}
func (UsedWordMessage) Durable() bool { return true }

type GameOverMessage struct {
	Type string `json:"type"`
}

func NewGameOver() GameOverMessage    { return GameOverMessage{Type: "gameOver"} }
func (GameOverMessage) Durable() bool { return true }

type MultiplayerGameOverMessage struct {
	Type string `json:"type"`
}

func NewMultiplayerGameOver() MultiplayerGameOverMessage {
	return MultiplayerGameOverMessage{Type: "multiplayerGameOver"}
}
func (MultiplayerGameOverMessage) Durable() bool { return true }

type FinalStandingMessage struct {
	Type     string           `json:"type"`
	Standing []PlayerStanding `json:"standing"`
}

func NewFinalStanding(standing []PlayerStanding) FinalStandingMessage {
	return FinalStandingMessage{Type: "finalStanding", Standing: standing}
}
func (FinalStandingMessage) Durable() bool { return true }

type PrizeMessage struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

func NewPrize(amount float64) PrizeMessage { return PrizeMessage{Type: "prize", Amount: amount} }
func (PrizeMessage) Durable() bool         { return true }

type WarsPointMessage struct {
	Type      string  `json:"type"`
	WarsPoint float64 `json:"warsPoint"`
}

func NewWarsPoint(points float64) WarsPointMessage {
	return WarsPointMessage{Type: "warsPoint", WarsPoint: points}
}
func (WarsPointMessage) Durable() bool { return true }

// EliminationReason explains why a player left the active roster.
type EliminationReason string

const (
	EliminatedTimeout EliminationReason = "timeout"
	EliminatedHitMine EliminationReason = "hitMine"
)

type EliminatedMessage struct {
	Type         string            `json:"type"`
	Player       Player            `json:"player"`
	Reason       EliminationReason `json:"reason"`
	MinePosition *CellPosition     `json:"minePosition,omitempty"`
}

func NewEliminated(p Player, reason EliminationReason, mine *CellPosition) EliminatedMessage {
	return EliminatedMessage{Type: "eliminated", Player: p, Reason: reason, MinePosition: mine}
}
func (EliminatedMessage) Durable() bool { return true }

type CellRevealedMessage struct {
	Type       string    `json:"type"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	CellState  CellState `json:"cellState"`
	RevealedBy string    `json:"revealedBy"`
}

func NewCellRevealed(x, y int, state CellState, by string) CellRevealedMessage {
	return CellRevealedMessage{Type: "cellRevealed", X: x, Y: y, CellState: state, RevealedBy: by}
}
func (CellRevealedMessage) Durable() bool { return true }

// GameState values carried by board messages.
const (
	BoardWaiting = "waiting"
	BoardPlaying = "playing"
	BoardWon     = "won"
	BoardLost    = "lost"
)

type GameBoardMessage struct {
	Type          string       `json:"type"`
	Cells         []MaskedCell `json:"cells"`
	GameState     string       `json:"gameState"`
	TimeRemaining *uint64      `json:"timeRemaining"`
	Mines         int          `json:"mines"`
	BoardSize     int          `json:"boardSize"`
}

func NewGameBoard(cells []MaskedCell, gameState string, timeRemaining *uint64, mines, size int) GameBoardMessage {
	return GameBoardMessage{
		Type:          "gameBoard",
		Cells:         cells,
		GameState:     gameState,
		TimeRemaining: timeRemaining,
		Mines:         mines,
		BoardSize:     size,
	}
}
func (GameBoardMessage) Durable() bool { return true }

type BoardCreatedMessage struct {
	Type      string       `json:"type"`
	Cells     []MaskedCell `json:"cells"`
	GameState string       `json:"gameState"`
	Mines     int          `json:"mines"`
	BoardSize int          `json:"boardSize"`
}

func NewBoardCreated(cells []MaskedCell, gameState string, mines, size int) BoardCreatedMessage {
	return BoardCreatedMessage{
		Type:      "boardCreated",
		Cells:     cells,
		GameState: gameState,
		Mines:     mines,
		BoardSize: size,
	}
}
func (BoardCreatedMessage) Durable() bool { return true }

// BoardGameOverMessage is the single-player end-of-game frame carrying the
// unmasked board.
type BoardGameOverMessage struct {
	Type      string       `json:"type"`
	Won       bool         `json:"won"`
	Cells     []MaskedCell `json:"cells"`
	Mines     int          `json:"mines"`
	BoardSize int          `json:"boardSize"`
}

func NewBoardGameOver(won bool, cells []MaskedCell, mines, size int) BoardGameOverMessage {
	return BoardGameOverMessage{Type: "gameOver", Won: won, Cells: cells, Mines: mines, BoardSize: size}
}
func (BoardGameOverMessage) Durable() bool { return true }

type NoBoardMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewNoBoard(msg string) NoBoardMessage { return NoBoardMessage{Type: "noBoard", Message: msg} }
func (NoBoardMessage) Durable() bool       { return true }

type TimeUpMessage struct {
	Type      string       `json:"type"`
	Cells     []MaskedCell `json:"cells"`
	Mines     int          `json:"mines"`
	BoardSize int          `json:"boardSize"`
}

func NewTimeUp(cells []MaskedCell, mines, size int) TimeUpMessage {
	return TimeUpMessage{Type: "timeUp", Cells: cells, Mines: mines, BoardSize: size}
}
func (TimeUpMessage) Durable() bool { return true }

type MultiplierTargetMessage struct {
	Type          string  `json:"type"`
	MaxMultiplier float64 `json:"maxMultiplier"`
	Size          int     `json:"size"`
	Risk          float64 `json:"risk"`
}

func NewMultiplierTarget(max float64, size int, risk float64) MultiplierTargetMessage {
	return MultiplierTargetMessage{Type: "multiplierTarget", MaxMultiplier: max, Size: size, Risk: risk}
}
func (MultiplierTargetMessage) Durable() bool { return true }

type ClaimInfoMessage struct {
	Type              string      `json:"type"`
	ClaimState        *ClaimState `json:"claimState"`
	CashoutAmount     *float64    `json:"cashoutAmount"`
	CurrentMultiplier *float64    `json:"currentMultiplier"`
	RevealedCount     *int        `json:"revealedCount"`
	Size              *int        `json:"size"`
	Risk              *float64    `json:"risk"`
}

func NewClaimInfo(claim *ClaimState, cashout, multiplier *float64, revealed, size *int, risk *float64) ClaimInfoMessage {
	return ClaimInfoMessage{
		Type:              "claimInfo",
		ClaimState:        claim,
		CashoutAmount:     cashout,
		CurrentMultiplier: multiplier,
		RevealedCount:     revealed,
		Size:              size,
		Risk:              risk,
	}
}
func (ClaimInfoMessage) Durable() bool { return true }

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(msg string) ErrorMessage { return ErrorMessage{Type: "error", Message: msg} }
func (ErrorMessage) Durable() bool     { return true }

// ClientMessage is the inbound frame envelope. Fields beyond Type are
// populated per message kind.
type ClientMessage struct {
	Type string `json:"type"`

	// wordEntry
	Word string `json:"word,omitempty"`

	// ping
	Ts uint64 `json:"ts,omitempty"`

	// cellReveal / cellFlag
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// createBoard / multiplierTarget
	Size   int     `json:"size,omitempty"`
	Risk   float64 `json:"risk,omitempty"`
	Blind  bool    `json:"blind,omitempty"`
	Amount float64 `json:"amount,omitempty"`

	// cashoutClaim
	TxID string `json:"txId,omitempty"`
}

const (
	ClientWordEntry        = "wordEntry"
	ClientPing             = "ping"
	ClientCellReveal       = "cellReveal"
	ClientCellFlag         = "cellFlag"
	ClientCreateBoard      = "createBoard"
	ClientMultiplierTarget = "multiplierTarget"
	ClientCashout          = "cashout"
)

// ParseClientMessage decodes one inbound frame.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CellPosition points at one board cell.
type CellPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}
