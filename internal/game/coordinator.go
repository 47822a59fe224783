package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/config"
	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// ResultReporter records final placements for the leaderboard. Reporting
// is best effort: a failed write never blocks the match.
type ResultReporter interface {
	ReportResult(ctx context.Context, lobbyID, playerID uuid.UUID, rank int, prize *float64, warsPoints float64) error
}

// Coordinator owns everything game-agnostic about a running match: the
// session registry, admission, turn timers, elimination and settlement.
// Engines plug in per game kind.
type Coordinator struct {
	cfg      *config.Config
	store    store.Store
	msg      Messenger
	sessions *SessionRegistry
	engines  map[models.GameKind]Engine
	reporter ResultReporter
}

func NewCoordinator(cfg *config.Config, st store.Store, msg Messenger, reporter ResultReporter) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		store:    st,
		msg:      msg,
		sessions: NewSessionRegistry(),
		engines:  make(map[models.GameKind]Engine),
		reporter: reporter,
	}
	c.engines[models.GameLexiWars] = NewLexiWarsEngine(st, cfg.WordTurnSecs)
	c.engines[models.GameSweeper] = NewSweeperEngine(st, cfg.SweeperTurnSecs)
	return c
}

func (c *Coordinator) engine(kind models.GameKind) (Engine, error) {
	e, ok := c.engines[kind]
	if !ok {
		return nil, fmt.Errorf("no engine for game %q", kind)
	}
	return e, nil
}

// Session returns the live session for a lobby, rebuilding it from the
// store on first touch.
func (c *Coordinator) Session(ctx context.Context, lobbyID uuid.UUID) (*Session, error) {
	return c.sessions.GetOrCreate(lobbyID, func() (*Session, error) {
		return RebuildSession(ctx, c.store, lobbyID, c.cfg.StartingMinWordLength)
	})
}

// HandleConnect runs when a player's socket comes up, after the registry
// delivered any queued messages. It records presence, lets late roster
// additions in before start, and kicks off admission on the first arrival.
func (c *Coordinator) HandleConnect(ctx context.Context, lobbyID uuid.UUID, player *models.Player) error {
	s, err := c.Session(ctx, lobbyID)
	if err != nil {
		return err
	}

	if err := c.store.AddConnected(ctx, lobbyID, player.ID); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.player(player.ID); !ok {
		s.Players = append(s.Players, *player)
		s.mu.Unlock()
		if err := c.store.SavePlayer(ctx, lobbyID, player); err != nil {
			log.Printf("[STORE] save player %s failed: %v", player.ID, err)
		}
		s.mu.Lock()
	}

	lateJoiner := s.Started && !s.Finished &&
		indexOf(s.Active, player.ID) < 0 && indexOf(s.Eliminated, player.ID) < 0

	startAdmission := !s.Started && !s.Finished && !s.admissionRunning
	if startAdmission {
		s.admissionRunning = true
	}
	s.mu.Unlock()

	if lateJoiner {
		c.msg.SendToPlayer(ctx, lobbyID, player.ID, models.NewAlreadyStarted())
	}

	if startAdmission {
		log.Printf("[ADMISSION] first arrival for lobby %s, starting countdown", lobbyID)
		if err := c.store.SetLobbyState(ctx, lobbyID, models.LobbyStarting); err != nil {
			log.Printf("[STORE] set lobby state failed for %s: %v", lobbyID, err)
		}
		go c.runAdmission(context.WithoutCancel(ctx), s)
	}

	return nil
}

// HandleDisconnect records lost presence. Match state is untouched: a
// disconnected player's turn still times out like anyone else's.
func (c *Coordinator) HandleDisconnect(ctx context.Context, lobbyID, playerID uuid.UUID) {
	if err := c.store.RemoveConnected(ctx, lobbyID, playerID); err != nil {
		log.Printf("[STORE] remove connected %s failed: %v", playerID, err)
	}
}

// HandleMessage dispatches one parsed client frame.
func (c *Coordinator) HandleMessage(ctx context.Context, lobbyID, playerID uuid.UUID, m *models.ClientMessage) {
	switch m.Type {
	case models.ClientPing:
		now := uint64(time.Now().UnixMilli())
		var pong uint64
		if now > m.Ts {
			pong = now - m.Ts
		}
		c.msg.SendToPlayer(ctx, lobbyID, playerID, models.NewPong(m.Ts, pong))
	case models.ClientWordEntry, models.ClientCellReveal:
		c.handleMove(ctx, lobbyID, playerID, m)
	default:
		log.Printf("[WS] unknown message type %q from %s", m.Type, playerID)
	}
}

func (c *Coordinator) handleMove(ctx context.Context, lobbyID, playerID uuid.UUID, m *models.ClientMessage) {
	s, ok := c.sessions.Get(lobbyID)
	if !ok {
		log.Printf("[GAME] move for lobby %s with no session", lobbyID)
		return
	}

	s.mu.Lock()
	mover, exists := s.player(playerID)
	if !exists {
		s.mu.Unlock()
		return
	}
	moverCopy := *mover
	kind := s.Info.Game
	s.mu.Unlock()

	eng, err := c.engine(kind)
	if err != nil {
		log.Printf("[GAME] %v", err)
		return
	}

	// Frame type must match the lobby's game.
	if (kind == models.GameLexiWars && m.Type != models.ClientWordEntry) ||
		(kind == models.GameSweeper && m.Type != models.ClientCellReveal) {
		return
	}

	outcome, err := eng.Apply(ctx, s, &moverCopy, m)
	if err != nil {
		if errors.Is(err, ErrNotStarted) || errors.Is(err, ErrNotYourTurn) {
			log.Printf("[GAME] move from %s ignored: %v", playerID, err)
		} else {
			log.Printf("[GAME] move from %s failed: %v", playerID, err)
		}
		return
	}

	if outcome.Reject != nil {
		c.msg.SendToPlayer(ctx, lobbyID, playerID, outcome.Reject)
		return
	}

	roster := s.Roster()
	rosterIDs := make([]uuid.UUID, len(roster))
	for i := range roster {
		rosterIDs[i] = roster[i].ID
	}
	for _, frame := range outcome.Broadcasts {
		c.msg.Broadcast(ctx, lobbyID, rosterIDs, frame)
	}

	switch {
	case outcome.EliminateMover:
		c.eliminate(ctx, s, eng, playerID, outcome.Reason, outcome.MinePosition)
	case outcome.Completed:
		c.endGame(ctx, s, eng)
	case outcome.NextTurn != uuid.Nil:
		c.startTurnTimer(s, eng, outcome.NextTurn)
	}
}

// eliminate knocks a player out, settles their placement and either ends
// the match or hands the turn to the eliminated player's successor.
func (c *Coordinator) eliminate(ctx context.Context, s *Session, eng Engine, playerID uuid.UUID, reason models.EliminationReason, minePos *models.CellPosition) {
	s.mu.Lock()
	if s.Finished {
		s.mu.Unlock()
		return
	}
	// A timeout only stands while the player still holds the turn: a move
	// committed after the timer's last tick supersedes the elimination. The
	// check lives inside the critical section so the ownership read and the
	// roster mutation cannot be split by a racing move.
	if reason == models.EliminatedTimeout && s.CurrentTurn != playerID {
		s.mu.Unlock()
		log.Printf("[TIMER] timeout for %s superseded by a move in lobby %s", playerID, s.LobbyID)
		return
	}
	pos := indexOf(s.Active, playerID)
	if pos < 0 {
		s.mu.Unlock()
		return
	}
	s.Eliminated = append(s.Eliminated, playerID)
	s.removeActive(playerID)
	remaining := append([]uuid.UUID(nil), s.Active...)
	rank := len(remaining) + 1

	var eliminatedCopy models.Player
	if p, ok := s.player(playerID); ok {
		p.Rank = &rank
		eliminatedCopy = *p
	}
	rosterIDs := s.rosterIDs()
	s.mu.Unlock()

	log.Printf("[GAME] player %s eliminated from lobby %s (%s), rank %d", playerID, s.LobbyID, reason, rank)

	if err := c.store.AppendEliminated(ctx, s.LobbyID, playerID); err != nil {
		log.Printf("[STORE] append eliminated failed for %s: %v", s.LobbyID, err)
	}
	if err := c.store.SetActivePlayers(ctx, s.LobbyID, remaining); err != nil {
		log.Printf("[STORE] set active players failed for %s: %v", s.LobbyID, err)
	}

	if eng.Kind() == models.GameSweeper {
		c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, models.NewEliminated(eliminatedCopy, reason, minePos))
	}

	c.settlePlayer(ctx, s, playerID, rank)

	if len(remaining) <= 1 {
		c.endGame(ctx, s, eng)
		return
	}

	// Successor is whoever now sits at the eliminated player's slot.
	nextID := remaining[pos%len(remaining)]

	s.mu.Lock()
	s.CurrentTurn = nextID
	nextPlayer, ok := s.player(nextID)
	if !ok {
		s.mu.Unlock()
		return
	}
	next := *nextPlayer
	s.mu.Unlock()

	if err := c.store.SetCurrentTurn(ctx, s.LobbyID, nextID); err != nil {
		log.Printf("[STORE] set current turn failed for %s: %v", s.LobbyID, err)
	}

	c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, models.NewTurn(next, eng.TurnSeconds()))
	c.startTurnTimer(s, eng, nextID)
}

// settlePlayer sends a finisher their rank, prize and score, updates the
// stored player record and reports the result.
func (c *Coordinator) settlePlayer(ctx context.Context, s *Session, playerID uuid.UUID, rank int) {
	connected, err := c.store.ConnectedPlayers(ctx, s.LobbyID)
	if err != nil {
		log.Printf("[STORE] connected players lookup failed for %s: %v", s.LobbyID, err)
	}
	connectedCount := len(connected)
	if connectedCount == 0 {
		connectedCount = 1
	}

	s.mu.Lock()
	info := s.Info
	prize := Prize(info, connectedCount, rank)
	points := WarsPoints(info, connectedCount, rank, prize, playerID)
	var record models.Player
	if p, ok := s.player(playerID); ok {
		p.Rank = &rank
		p.Prize = prize
		record = *p
	}
	s.mu.Unlock()

	c.msg.SendToPlayer(ctx, s.LobbyID, playerID, models.NewRank(fmt.Sprintf("%d", rank)))
	if prize != nil {
		c.msg.SendToPlayer(ctx, s.LobbyID, playerID, models.NewPrize(*prize))
	}
	c.msg.SendToPlayer(ctx, s.LobbyID, playerID, models.NewWarsPoint(points))

	if record.ID != uuid.Nil {
		if err := c.store.SavePlayer(ctx, s.LobbyID, &record); err != nil {
			log.Printf("[STORE] save player %s failed: %v", playerID, err)
		}
	}

	if c.reporter != nil {
		if err := c.reporter.ReportResult(ctx, s.LobbyID, playerID, rank, prize, points); err != nil {
			log.Printf("[DB] report result failed for player %s: %v", playerID, err)
		}
	}
}

// endGame settles the survivors, publishes the final standing and tears
// the session down. The lobby state flips to Finished first so no timer
// or move can interleave a second ending.
func (c *Coordinator) endGame(ctx context.Context, s *Session, eng Engine) {
	if err := c.store.SetLobbyState(ctx, s.LobbyID, models.LobbyFinished); err != nil {
		log.Printf("[STORE] set lobby state failed for %s: %v", s.LobbyID, err)
	}

	s.mu.Lock()
	if s.Finished {
		s.mu.Unlock()
		return
	}
	s.Finished = true
	s.Info.State = models.LobbyFinished
	remaining := append([]uuid.UUID(nil), s.Active...)
	eliminated := append([]uuid.UUID(nil), s.Eliminated...)
	rosterIDs := s.rosterIDs()
	s.mu.Unlock()

	for i, id := range remaining {
		c.settlePlayer(ctx, s, id, i+1)
	}

	// Survivors first, then the eliminated in reverse order: the longer
	// you lasted, the better your standing.
	connected, _ := c.store.ConnectedPlayers(ctx, s.LobbyID)
	connectedCount := len(connected)
	if connectedCount == 0 {
		connectedCount = 1
	}

	s.mu.Lock()
	var standing []models.PlayerStanding
	addStanding := func(id uuid.UUID, rank int) {
		if p, ok := s.player(id); ok {
			cp := *p
			cp.Rank = &rank
			cp.Prize = Prize(s.Info, connectedCount, rank)
			standing = append(standing, models.PlayerStanding{Player: cp, Rank: rank})
		}
	}
	for i, id := range remaining {
		addStanding(id, i+1)
	}
	for i := len(eliminated) - 1; i >= 0; i-- {
		addStanding(eliminated[i], len(standing)+1)
	}
	s.mu.Unlock()

	c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, eng.GameOverFrame())
	c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, models.NewFinalStanding(standing))

	if err := c.store.ClearMatchState(ctx, s.LobbyID); err != nil {
		log.Printf("[STORE] clear match state failed for %s: %v", s.LobbyID, err)
	}
	c.sessions.Delete(s.LobbyID)
	log.Printf("[GAME] match ended for lobby %s", s.LobbyID)
}
