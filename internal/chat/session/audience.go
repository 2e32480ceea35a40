package session

import (
	"errors"

	"go.uber.org/zap"

	"strangerchat/internal/chat"
)

var errNotInRoom = errors.New("connection is not a room member")

// audience resolves a room code to the connections that should hear an
// event, optionally excluding one (the sender of a typing notice, say).
// Resolution is deliberately separate from delivery so each can be tested
// on its own.
func (d *Dispatcher) audience(roomID string, except chat.Conn) []chat.Conn {
	members := d.registry.Members(roomID)
	conns := make([]chat.Conn, 0, len(members))
	for _, p := range members {
		if except != nil && p.Conn == except {
			continue
		}
		conns = append(conns, p.Conn)
	}
	return conns
}

func (d *Dispatcher) deliver(conns []chat.Conn, event string, body any) {
	for _, c := range conns {
		d.send(c, event, body)
	}
}

func (d *Dispatcher) send(conn chat.Conn, event string, body any) {
	if err := conn.Send(event, body); err != nil {
		zap.L().Debug("session.send_failed",
			zap.String("event", event), zap.String("conn", conn.ID()), zap.Error(err))
	}
}

// exitCurrentRoom removes the connection from whichever room holds it and
// tells the remaining members. No-op for roomless connections. Used on
// disconnect and whenever entering a room supersedes the current one.
func (d *Dispatcher) exitCurrentRoom(conn chat.Conn) {
	if code, name, ok := d.registry.RemoveConn(conn); ok {
		d.deliver(d.audience(code, nil), chat.EventUserLeft, name)
	}
}

func (d *Dispatcher) isMember(roomID string, conn chat.Conn) bool {
	for _, p := range d.registry.Members(roomID) {
		if p.Conn == conn {
			return true
		}
	}
	return false
}
