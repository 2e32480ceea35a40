package registry

import (
	"errors"
	"sync"

	"github.com/samber/lo"

	"strangerchat/internal/chat"
)

// Kind records how a room came to exist.
type Kind string

const (
	KindFriend Kind = "friend"
	KindRandom Kind = "random"
)

const maxMembers = 2

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room full")
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)

// Participant is a display name bound to one live connection within a room.
type Participant struct {
	Name string
	Conn chat.Conn
}

type room struct {
	code    string
	kind    Kind
	members []Participant
}

// Registry owns the set of active rooms and their membership. It is a pure
// state container: it performs no I/O and emits no events.
type Registry struct {
	mu              sync.RWMutex
	rooms           map[string]*room
	maxCodeAttempts int
}

func New(maxCodeAttempts int) *Registry {
	if maxCodeAttempts < 1 {
		maxCodeAttempts = 1
	}
	return &Registry{
		rooms:           make(map[string]*room),
		maxCodeAttempts: maxCodeAttempts,
	}
}

// Create stores a new one-member room and returns its code. Generated codes
// are checked against live rooms and regenerated on collision.
func (r *Registry) Create(kind Kind, name string, conn chat.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for range r.maxCodeAttempts {
		code := generateCode(kind)
		if _, taken := r.rooms[code]; taken {
			continue
		}
		r.rooms[code] = &room{
			code:    code,
			kind:    kind,
			members: []Participant{{Name: name, Conn: conn}},
		}
		return code, nil
	}
	return "", ErrCodeSpaceExhausted
}

// Join appends a participant to the room. Joining a room one is already a
// member of is a no-op, reported through already so callers can skip their
// join announcements.
func (r *Registry) Join(code, name string, conn chat.Conn) (already bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return false, ErrRoomNotFound
	}
	for _, p := range rm.members {
		if p.Conn == conn {
			return true, nil
		}
	}
	if len(rm.members) >= maxMembers {
		return false, ErrRoomFull
	}
	rm.members = append(rm.members, Participant{Name: name, Conn: conn})
	return false, nil
}

// Leave removes the matching participant if present; absent participants are
// a no-op, not an error. The room is deleted the moment it empties.
func (r *Registry) Leave(code string, conn chat.Conn) (removedName string, emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return "", false
	}
	removedName, emptied = r.removeMember(rm, conn)
	return removedName, emptied
}

// Close removes all members and deletes the room regardless of membership
// count, returning the former membership so callers can notify it.
func (r *Registry) Close(code string) ([]Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	members := rm.members
	rm.members = nil
	delete(r.rooms, code)
	return members, true
}

// RemoveConn scans all rooms and removes the connection from any it belongs
// to. The one-room invariant means at most one room is affected, but the scan
// stays defensive.
func (r *Registry) RemoveConn(conn chat.Conn) (code, name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rm := range r.rooms {
		if removed, _ := r.removeMember(rm, conn); removed != "" {
			code, name, ok = rm.code, removed, true
		}
	}
	return code, name, ok
}

// Members resolves a code to its current membership snapshot.
func (r *Registry) Members(code string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil
	}
	out := make([]Participant, len(rm.members))
	copy(out, rm.members)
	return out
}

// Count reports the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// caller must hold r.mu.
func (r *Registry) removeMember(rm *room, conn chat.Conn) (removedName string, emptied bool) {
	kept := lo.Filter(rm.members, func(p Participant, _ int) bool {
		if p.Conn == conn {
			removedName = p.Name
			return false
		}
		return true
	})
	if removedName == "" {
		return "", false
	}
	rm.members = kept
	if len(rm.members) == 0 {
		delete(r.rooms, rm.code)
		return removedName, true
	}
	return removedName, false
}
