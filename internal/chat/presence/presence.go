package presence

import (
	"sync"

	"go.uber.org/zap"

	"strangerchat/internal/chat"
)

// Broadcaster tracks the set of live connections and pushes the online count
// to every one of them on connect, disconnect, and explicit request. No
// debouncing: count changes are rare compared to message traffic.
type Broadcaster struct {
	mu    sync.RWMutex
	conns map[chat.Conn]struct{}
}

func New() *Broadcaster {
	return &Broadcaster{conns: make(map[chat.Conn]struct{})}
}

func (b *Broadcaster) Track(conn chat.Conn) {
	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()
}

// Forget reports whether the connection was still tracked, so teardown can
// run twice without a second count broadcast.
func (b *Broadcaster) Forget(conn chat.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.conns[conn]; !ok {
		return false
	}
	delete(b.conns, conn)
	return true
}

func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// BroadcastCount sends online_count to every tracked connection. The set is
// snapshotted under the read lock; the writes happen outside it.
func (b *Broadcaster) BroadcastCount() {
	b.mu.RLock()
	conns := make([]chat.Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	count := len(conns)
	b.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(chat.EventOnlineCount, count); err != nil {
			zap.L().Debug("presence.send_failed",
				zap.String("conn", c.ID()), zap.Error(err))
		}
	}
}
