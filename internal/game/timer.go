package game

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// startTurnTimer runs the per-turn countdown in its own goroutine. The
// timer never gets cancelled; each tick re-checks turn ownership and the
// goroutine quietly exits once the turn moved on. At zero, whoever still
// holds the turn is eliminated.
func (c *Coordinator) startTurnTimer(s *Session, eng Engine, playerID uuid.UUID) {
	go func() {
		ctx := context.Background()

		for i := eng.TurnSeconds(); i >= 0; i-- {
			owner, running := s.TurnOwner()
			if !running {
				return
			}
			if owner != playerID {
				log.Printf("[TIMER] turn changed, stopping timer for player %s in lobby %s", playerID, s.LobbyID)
				return
			}

			c.msg.SendToPlayer(ctx, s.LobbyID, playerID, models.NewCountdown(uint64(i)))

			s.mu.Lock()
			holder, ok := s.player(playerID)
			var holderCopy models.Player
			if ok {
				holderCopy = *holder
			}
			rosterIDs := s.rosterIDs()
			s.mu.Unlock()
			if ok {
				c.msg.Broadcast(ctx, s.LobbyID, rosterIDs, models.NewTurn(holderCopy, i))
			}

			time.Sleep(time.Second)
		}

		// Window elapsed with the turn unclaimed.
		owner, running := s.TurnOwner()
		if !running || owner != playerID {
			return
		}
		log.Printf("[TIMER] player %s timed out in lobby %s", playerID, s.LobbyID)
		c.eliminate(ctx, s, eng, playerID, models.EliminatedTimeout, nil)
	}()
}
