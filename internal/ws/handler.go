package ws

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stackswars/backend/internal/auth"
	"github.com/stackswars/backend/internal/config"
	"github.com/stackswars/backend/internal/game"
	"github.com/stackswars/backend/internal/models"
	"github.com/stackswars/backend/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Routes wires the WebSocket endpoints to the hub and the game layer.
type Routes struct {
	cfg    *config.Config
	hub    *Hub
	store  store.Store
	coord  *game.Coordinator
	single *game.SingleManager
}

func NewRoutes(cfg *config.Config, hub *Hub, st store.Store, coord *game.Coordinator, single *game.SingleManager) *Routes {
	return &Routes{cfg: cfg, hub: hub, store: st, coord: coord, single: single}
}

// Register mounts the endpoints on the router.
func (rt *Routes) Register(r *gin.Engine) {
	r.GET("/ws/lobby/:lobbyID", rt.handleMatch)
	r.GET("/ws/sweeper/single", rt.handleSolo)
}

// identity verifies the connect token passed as a query parameter; the
// browser WebSocket API cannot set headers.
func (rt *Routes) identity(c *gin.Context) *auth.Identity {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return nil
	}
	ident, err := auth.VerifyToken(rt.cfg.JWTSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil
	}
	return ident
}

// handleMatch joins a player to a lobby socket.
func (rt *Routes) handleMatch(c *gin.Context) {
	ident := rt.identity(c)
	if ident == nil {
		return
	}

	lobbyID, err := uuid.Parse(c.Param("lobbyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lobby id"})
		return
	}

	ctx := c.Request.Context()
	if _, err := rt.store.LobbyInfo(ctx, lobbyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lobby not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	player := &models.Player{
		ID:            ident.PlayerID,
		WalletAddress: ident.WalletAddress,
		Username:      ident.Username,
		State:         models.PlayerReady,
	}

	client := newClient(rt.hub, conn, lobbyID, ident.PlayerID)
	bg := context.WithoutCancel(ctx)
	client.onMessage = func(payload []byte) {
		m, err := models.ParseClientMessage(payload)
		if err != nil {
			log.Printf("[WS] bad frame from %s: %v", ident.PlayerID, err)
			return
		}
		rt.coord.HandleMessage(bg, lobbyID, ident.PlayerID, m)
	}
	client.onClose = func() {
		rt.coord.HandleDisconnect(bg, lobbyID, ident.PlayerID)
	}

	rt.hub.Register(bg, client)
	go client.writePump()

	if err := rt.coord.HandleConnect(bg, lobbyID, player); err != nil {
		log.Printf("[GAME] connect failed for %s in %s: %v", ident.PlayerID, lobbyID, err)
		rt.hub.Unregister(client)
		conn.Close()
		return
	}

	go client.readPump()
}

// handleSolo joins a player to their solo grid-reveal socket. The hub
// keys the connection by the player's own id.
func (rt *Routes) handleSolo(c *gin.Context) {
	ident := rt.identity(c)
	if ident == nil {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	bg := context.WithoutCancel(c.Request.Context())
	client := newClient(rt.hub, conn, ident.PlayerID, ident.PlayerID)
	client.onMessage = func(payload []byte) {
		m, err := models.ParseClientMessage(payload)
		if err != nil {
			log.Printf("[WS] bad frame from %s: %v", ident.PlayerID, err)
			return
		}
		rt.single.HandleMessage(bg, ident.PlayerID, ident.Username, m)
	}
	client.onClose = func() {
		rt.single.HandleDisconnect(bg, ident.PlayerID)
	}

	rt.hub.Register(bg, client)
	go client.writePump()
	rt.single.HandleConnect(bg, ident.PlayerID)
	go client.readPump()
}
