package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

// Hub is the connection registry: lobby -> player -> live client. It is
// the game layer's messenger; durable frames that cannot be delivered are
// queued in the store and replayed FIFO when the player reconnects.
type Hub struct {
	store    store.Store
	queueTTL time.Duration

	mu      sync.RWMutex
	clients map[uuid.UUID]map[uuid.UUID]*Client
}

func NewHub(st store.Store, queueTTL time.Duration) *Hub {
	return &Hub{
		store:    st,
		queueTTL: queueTTL,
		clients:  make(map[uuid.UUID]map[uuid.UUID]*Client),
	}
}

// Register installs a client, replacing any previous connection for the
// same player. Queued messages drain into the send buffer under the
// registry write lock, so nothing live can interleave ahead of them.
func (h *Hub) Register(ctx context.Context, client *Client) {
	h.mu.Lock()

	if room, ok := h.clients[client.lobbyID]; ok {
		if old, ok := room[client.playerID]; ok && old != client {
			log.Printf("[WS] player %s reconnecting to %s, closing old connection", client.playerID, client.lobbyID)
			old.closeReplaced()
		}
	}
	if _, ok := h.clients[client.lobbyID]; !ok {
		h.clients[client.lobbyID] = make(map[uuid.UUID]*Client)
	}
	h.clients[client.lobbyID][client.playerID] = client

	queued, err := h.store.DrainQueued(ctx, client.lobbyID, client.playerID)
	if err != nil {
		log.Printf("[STORE] drain queued for %s failed: %v", client.playerID, err)
	}
	for _, payload := range queued {
		if !client.trySend(payload) {
			log.Printf("[WS] send buffer full replaying queue for %s, dropping rest", client.playerID)
			break
		}
	}
	h.mu.Unlock()

	if len(queued) > 0 {
		log.Printf("[WS] replayed %d queued messages for %s in %s", len(queued), client.playerID, client.lobbyID)
	}
	log.Printf("[WS] player %s connected to %s", client.playerID, client.lobbyID)
}

// Unregister removes a client if it is still the player's current
// connection. A replaced client unregistering later is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.clients[client.lobbyID]
	if !ok {
		return
	}
	if cur, ok := room[client.playerID]; ok && cur == client {
		delete(room, client.playerID)
		if len(room) == 0 {
			delete(h.clients, client.lobbyID)
		}
		log.Printf("[WS] player %s disconnected from %s", client.playerID, client.lobbyID)
	}
}

// Connected reports whether the player currently holds a live connection.
func (h *Hub) Connected(lobbyID, playerID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[lobbyID][playerID]
	return ok
}

// SendToPlayer delivers one frame, falling back to the offline queue for
// durable frames when the player is unreachable.
func (h *Hub) SendToPlayer(ctx context.Context, lobbyID, playerID uuid.UUID, msg models.ServerMessage) {
	payload, err := models.Marshal(msg)
	if err != nil {
		log.Printf("[WS] marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	client, ok := h.clients[lobbyID][playerID]
	delivered := ok && client.trySend(payload)
	h.mu.RUnlock()

	if delivered {
		return
	}
	h.queueDurable(ctx, lobbyID, playerID, msg, payload)
}

// Broadcast delivers one frame to every listed player. Failures are
// collected under the read lock and queued afterwards.
func (h *Hub) Broadcast(ctx context.Context, lobbyID uuid.UUID, playerIDs []uuid.UUID, msg models.ServerMessage) {
	payload, err := models.Marshal(msg)
	if err != nil {
		log.Printf("[WS] marshal failed: %v", err)
		return
	}

	var missed []uuid.UUID
	h.mu.RLock()
	room := h.clients[lobbyID]
	for _, id := range playerIDs {
		client, ok := room[id]
		if !ok || !client.trySend(payload) {
			missed = append(missed, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range missed {
		h.queueDurable(ctx, lobbyID, id, msg, payload)
	}
}

func (h *Hub) queueDurable(ctx context.Context, lobbyID, playerID uuid.UUID, msg models.ServerMessage, payload []byte) {
	if !msg.Durable() {
		return
	}
	if err := h.store.QueueMessage(ctx, lobbyID, playerID, payload, h.queueTTL); err != nil {
		log.Printf("[STORE] queue message for %s failed: %v", playerID, err)
	}
}
