package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	PingPeriod = (pongWait * 9) / 10
)

// SafeConn serialises writes to a connection. gorilla/websocket allows one
// concurrent reader and one concurrent writer.
type SafeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewSafeConn wraps conn and installs the pong handler that extends the read deadline.
func NewSafeConn(conn *websocket.Conn) *SafeConn {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &SafeConn{conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *SafeConn) WriteTyped(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *SafeConn) WriteError(code, errMsg string) error {
	return c.WriteTyped(ErrorResponse{Event: EventError, Code: code, Error: errMsg})
}

// Ping sends a control ping.
func (c *SafeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ReadJSON reads and decodes a message. Any client message extends the read deadline.
func (c *SafeConn) ReadJSON(v any) error {
	if err := c.conn.ReadJSON(v); err != nil {
		return err
	}
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Close sends a normal closure frame and closes the connection.
func (c *SafeConn) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.mu.Unlock()
	return c.conn.Close()
}
