package remote

import (
	"time"

	"github.com/forgeline/arena/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one connected observer of a series' remote event stream.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	seriesID uuid.UUID
	log      *logger.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, seriesID uuid.UUID, log *logger.Logger) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan []byte, 256), seriesID: seriesID, log: log}
}

// Register wires the client into its hub and returns once done; call
// before starting ReadPump/WritePump.
func (c *Client) Register() {
	c.hub.RegisterClient(c.seriesID, c)
}

// ReadPump discards inbound traffic beyond keepalive pongs; this is a
// broadcast-only stream.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c.seriesID, c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.LogError("remote publish client read error", err, zap.String("series_id", c.seriesID.String()))
			}
			return
		}
	}
}

// WritePump drains queued envelopes to the client, pinging on idle.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
