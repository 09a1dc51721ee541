package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/pkg/middleware/cors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// Client is a single websocket subscriber. Clients only receive; anything
// they send besides control frames is discarded.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topic  string
	userID string
	logger *zap.Logger
}

// NewUpgrader builds a websocket upgrader that accepts the same origins as
// the HTTP CORS policy. Requests without an Origin header are not browsers and
// pass.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := cors.Allowed(allowedOrigins)
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed(origin)
		},
	}
}

// Serve registers conn under topic and blocks until the connection closes.
func (h *Hub) Serve(conn *websocket.Conn, topic, userID string) {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topic:  topic,
		userID: userID,
		logger: h.logger,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("realtime unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
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
