package directory

import (
	"sync"

	"strangerchat/internal/chat"
)

// Directory maps each live connection to its display name, one active
// binding per connection. Display names are labels, not identities:
// distinct connections may share a name.
type Directory struct {
	mu    sync.RWMutex
	names map[chat.Conn]string
}

func New() *Directory {
	return &Directory{names: make(map[chat.Conn]string)}
}

// Bind upserts the binding; rebinding the same connection to a new name
// overwrites the prior one.
func (d *Directory) Bind(conn chat.Conn, name string) {
	d.mu.Lock()
	d.names[conn] = name
	d.mu.Unlock()
}

// NameOf returns the display name bound to the connection, if any.
func (d *Directory) NameOf(conn chat.Conn) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[conn]
	return name, ok
}

// Unbind removes the connection's binding; idempotent.
func (d *Directory) Unbind(conn chat.Conn) {
	d.mu.Lock()
	delete(d.names, conn)
	d.mu.Unlock()
}

// Count reports how many connections hold a binding.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}
