package matchqueue

import (
	"sync"

	"github.com/samber/lo"

	"strangerchat/internal/chat"
	"strangerchat/internal/chat/registry"
)

type waiter struct {
	name string
	conn chat.Conn
}

// MatchResult reports the outcome of EnqueueOrMatch. When Matched is false
// the caller has been appended to the queue and waits.
type MatchResult struct {
	Matched     bool
	Code        string
	PartnerName string
	PartnerConn chat.Conn
}

// Queue is the FIFO waiting list for random chat. Pairing is strict FIFO:
// the earliest waiter is matched first, and a canceled re-entry goes to the
// back. The head pop and the room creation run under the queue lock so two
// concurrent arrivals cannot both claim the same waiter.
type Queue struct {
	mu       sync.Mutex
	waiters  []waiter
	registry *registry.Registry
}

func New(reg *registry.Registry) *Queue {
	return &Queue{registry: reg}
}

// EnqueueOrMatch pairs the participant with the earliest waiter, delegating
// room creation to the Registry. With an empty queue the participant becomes
// the waiter. Calling again while already queued keeps the original slot.
func (q *Queue) EnqueueOrMatch(name string, conn chat.Conn) (MatchResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, w := range q.waiters {
		if w.conn == conn {
			return MatchResult{}, nil
		}
	}

	if len(q.waiters) == 0 {
		q.waiters = append(q.waiters, waiter{name: name, conn: conn})
		return MatchResult{}, nil
	}

	head := q.waiters[0]
	code, err := q.registry.Create(registry.KindRandom, head.name, head.conn)
	if err != nil {
		return MatchResult{}, err
	}
	if _, err := q.registry.Join(code, name, conn); err != nil {
		// Unreachable on a fresh one-member room; surface it anyway.
		return MatchResult{}, err
	}
	q.waiters = q.waiters[1:]

	return MatchResult{
		Matched:     true,
		Code:        code,
		PartnerName: head.name,
		PartnerConn: head.conn,
	}, nil
}

// Cancel removes the connection from the queue if present; no-op otherwise.
func (q *Queue) Cancel(conn chat.Conn) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waiters = lo.Filter(q.waiters, func(w waiter, _ int) bool {
		return w.conn != conn
	})
}

// RemoveOnDisconnect is Cancel under its teardown name.
func (q *Queue) RemoveOnDisconnect(conn chat.Conn) {
	q.Cancel(conn)
}

// Waiting reports how many participants are queued.
func (q *Queue) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
