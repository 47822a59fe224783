package game

import (
	"context"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// Messenger delivers frames to players. The connection registry implements
// it; durable frames for offline players are queued there, ephemeral ones
// dropped. Delivery is best effort and never blocks game progress.
type Messenger interface {
	SendToPlayer(ctx context.Context, lobbyID, playerID uuid.UUID, msg models.ServerMessage)
	Broadcast(ctx context.Context, lobbyID uuid.UUID, playerIDs []uuid.UUID, msg models.ServerMessage)
}
