package game

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// runAdmission counts the admission window down once per second. The match
// starts early the moment the whole roster is present, starts at zero when
// at least two players and half the roster (rounded up) made it, and
// otherwise fails back to a waiting lobby.
func (c *Coordinator) runAdmission(ctx context.Context, s *Session) {
	for i := c.cfg.AdmissionWindowSecs; i >= 0; i-- {
		info, err := c.store.LobbyInfo(ctx, s.LobbyID)
		if err != nil {
			log.Printf("[ADMISSION] lobby lookup failed for %s: %v", s.LobbyID, err)
			c.finishAdmission(s)
			return
		}
		// Someone moved the lobby out of starting mid-countdown; drop the
		// countdown without any broadcasts.
		if info.State != models.LobbyStarting {
			log.Printf("[ADMISSION] lobby %s is %s, cancelling countdown", s.LobbyID, info.State)
			c.finishAdmission(s)
			return
		}

		connected, err := c.store.ConnectedPlayers(ctx, s.LobbyID)
		if err != nil {
			log.Printf("[ADMISSION] connected lookup failed for %s: %v", s.LobbyID, err)
			c.finishAdmission(s)
			return
		}

		s.mu.Lock()
		total := len(s.Players)
		s.mu.Unlock()

		log.Printf("[ADMISSION] lobby %s: %ds left, connected %d/%d", s.LobbyID, i, len(connected), total)

		if total > 0 && len(connected) == total {
			log.Printf("[ADMISSION] all players connected, starting lobby %s early", s.LobbyID)
			c.startGame(ctx, s, connected)
			return
		}

		for _, id := range connected {
			c.msg.SendToPlayer(ctx, s.LobbyID, id, models.NewStart(uint32(i), false))
		}

		if err := c.store.SetCountdown(ctx, s.LobbyID, i); err != nil {
			log.Printf("[STORE] set countdown failed for %s: %v", s.LobbyID, err)
		}

		if i == 0 {
			required := (total + 1) / 2
			if required < 2 {
				required = 2
			}
			if len(connected) >= required {
				log.Printf("[ADMISSION] lobby %s: %d/%d connected, required %d, starting",
					s.LobbyID, len(connected), total, required)
				c.startGame(ctx, s, connected)
			} else {
				log.Printf("[ADMISSION] lobby %s: only %d/%d connected, required %d, failing",
					s.LobbyID, len(connected), total, required)
				for _, id := range connected {
					c.msg.SendToPlayer(ctx, s.LobbyID, id, models.NewStartFailed())
				}
				if err := c.store.SetLobbyState(ctx, s.LobbyID, models.LobbyWaiting); err != nil {
					log.Printf("[STORE] set lobby state failed for %s: %v", s.LobbyID, err)
				}
				s.mu.Lock()
				s.Info.State = models.LobbyWaiting
				s.mu.Unlock()
				c.finishAdmission(s)
			}
			return
		}

		time.Sleep(time.Second)
	}
}

func (c *Coordinator) finishAdmission(s *Session) {
	s.mu.Lock()
	s.admissionRunning = false
	s.mu.Unlock()
}

// startGame flips the match to in-progress: the connected players become
// the active roster, the first of them takes the first turn and the
// engine's opening frames go out.
func (c *Coordinator) startGame(ctx context.Context, s *Session, connected []uuid.UUID) {
	eng, err := c.engine(s.Info.Game)
	if err != nil {
		log.Printf("[GAME] %v", err)
		c.finishAdmission(s)
		return
	}

	// The connected set comes back in no particular order; the roster
	// decides seating, so the first connected player in roster order opens.
	present := make(map[uuid.UUID]bool, len(connected))
	for _, id := range connected {
		present[id] = true
	}
	s.mu.Lock()
	ordered := make([]uuid.UUID, 0, len(connected))
	for i := range s.Players {
		if present[s.Players[i].ID] {
			ordered = append(ordered, s.Players[i].ID)
		}
	}
	s.mu.Unlock()

	if len(ordered) == 0 {
		c.finishAdmission(s)
		return
	}

	if err := c.store.SetStarted(ctx, s.LobbyID, true); err != nil {
		log.Printf("[STORE] set started failed for %s: %v", s.LobbyID, err)
		c.finishAdmission(s)
		return
	}
	if err := c.store.SetLobbyState(ctx, s.LobbyID, models.LobbyInProgress); err != nil {
		log.Printf("[STORE] set lobby state failed for %s: %v", s.LobbyID, err)
	}

	firstID := ordered[0]

	s.mu.Lock()
	s.Started = true
	s.Info.State = models.LobbyInProgress
	s.Active = append([]uuid.UUID(nil), ordered...)
	s.CurrentTurn = firstID
	s.admissionRunning = false

	openFrames, beginErr := eng.Begin(ctx, s)

	ruleSnapshot := storeRuleState(s)
	firstPlayer, _ := s.player(firstID)
	var first models.Player
	if firstPlayer != nil {
		first = *firstPlayer
	}
	rosterIDs := s.rosterIDs()
	s.mu.Unlock()

	if beginErr != nil {
		log.Printf("[GAME] engine begin failed for %s: %v", s.LobbyID, beginErr)
		return
	}

	if err := c.store.SetActivePlayers(ctx, s.LobbyID, ordered); err != nil {
		log.Printf("[STORE] set active players failed for %s: %v", s.LobbyID, err)
	}
	if err := c.store.SetCurrentTurn(ctx, s.LobbyID, firstID); err != nil {
		log.Printf("[STORE] set current turn failed for %s: %v", s.LobbyID, err)
	}
	if err := c.store.SetRuleState(ctx, s.LobbyID, ruleSnapshot); err != nil {
		log.Printf("[STORE] set rule state failed for %s: %v", s.LobbyID, err)
	}

	for _, frame := range openFrames {
		c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, frame)
	}
	c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, models.NewTurn(first, eng.TurnSeconds()))
	c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, models.NewStart(0, true))

	c.startTurnTimer(s, eng, firstID)

	log.Printf("[GAME] match started for lobby %s with %d players", s.LobbyID, len(ordered))
}
