package ws

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256
)

// Client is one live WebSocket connection. Solo-game sockets use the
// player's own id as the lobby key.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	lobbyID  uuid.UUID
	playerID uuid.UUID
	send     chan []byte

	// onMessage runs for every inbound frame; onClose once when the read
	// loop ends. Both are set before the pumps start.
	onMessage func([]byte)
	onClose   func()
}

func newClient(hub *Hub, conn *websocket.Conn, lobbyID, playerID uuid.UUID) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		lobbyID:  lobbyID,
		playerID: playerID,
		send:     make(chan []byte, sendBufferSize),
	}
}

// trySend queues a payload without blocking. Callers hold the hub lock.
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeReplaced shuts a connection superseded by a reconnect.
func (c *Client) closeReplaced() {
	deadline := time.Now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Printf("[WS] close control to replaced client %s failed: %v", c.playerID, err)
	}
	c.conn.Close()
	select {
	case <-c.send:
	default:
		close(c.send)
	}
}

// writePump drains the send buffer onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("[WS] write error for player %s: %v", c.playerID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for player %s: %v", c.playerID, err)
				return
			}
		}
	}
}

// readPump feeds inbound frames to onMessage until the socket dies.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		if c.onClose != nil {
			c.onClose()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}
		if c.onMessage != nil {
			c.onMessage(payload)
		}
	}
}
