package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn serializes writes to one websocket; gorilla allows a single
// concurrent writer.
type clientConn struct {
	id      string
	rawConn *websocket.Conn
	mu      sync.Mutex
}

func (c *clientConn) ID() string { return c.id }

// Send implements chat.Conn by wrapping the event in the wire envelope.
func (c *clientConn) Send(event string, body any) error {
	return c.writeJSON(eventFrame{Event: event, Body: body})
}

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data)
}

func (c *clientConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteJSON(v)
}
