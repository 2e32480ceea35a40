package session

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"strangerchat/internal/chat"
	"strangerchat/internal/chat/directory"
	"strangerchat/internal/chat/matchqueue"
	"strangerchat/internal/chat/presence"
	"strangerchat/internal/chat/registry"
)

// Entry types echoed back in room_joined, matching the intents the client
// sends: "friend" for creators, "join" for code entry, "random" for matches.
const (
	EntryFriend = "friend"
	EntryJoin   = "join"
	EntryRandom = "random"
)

// Dispatcher orchestrates the Registry, Queue, Directory, and Presence
// structures on behalf of one intent at a time and emits the resulting
// events to the right audience. It holds no room or queue state of its own.
//
// Malformed or out-of-state intents get no reply on the wire (matching the
// observed client contract) but are logged and counted; see DroppedIntents.
type Dispatcher struct {
	registry  *registry.Registry
	queue     *matchqueue.Queue
	directory *directory.Directory
	presence  *presence.Broadcaster

	dropped atomic.Uint64
}

func New(
	reg *registry.Registry,
	q *matchqueue.Queue,
	dir *directory.Directory,
	pres *presence.Broadcaster,
) *Dispatcher {
	return &Dispatcher{registry: reg, queue: q, directory: dir, presence: pres}
}

// Connect starts tracking a fresh connection and announces the new count.
func (d *Dispatcher) Connect(conn chat.Conn) {
	d.presence.Track(conn)
	d.presence.BroadcastCount()
}

// Disconnect tears the connection down across queue, registry, and
// directory. Safe to call more than once.
func (d *Dispatcher) Disconnect(conn chat.Conn) {
	if name, ok := d.directory.NameOf(conn); ok {
		zap.L().Debug("session.disconnect",
			zap.String("conn", conn.ID()), zap.String("name", name))
	}

	d.queue.RemoveOnDisconnect(conn)
	d.exitCurrentRoom(conn)
	d.directory.Unbind(conn)

	if d.presence.Forget(conn) {
		d.presence.BroadcastCount()
	}
}

// CreateRoom makes a friend room with the caller as sole member and hands
// the code back for sharing. Creating supersedes any prior room membership
// or queue slot: a connection holds at most one of either.
func (d *Dispatcher) CreateRoom(conn chat.Conn, username string) {
	d.directory.Bind(conn, username)
	d.exitCurrentRoom(conn)
	d.queue.Cancel(conn)

	code, err := d.registry.Create(registry.KindFriend, username, conn)
	if err != nil {
		// Exhausted code space; retryable by the client.
		zap.L().Error("session.create_room", zap.Error(err))
		return
	}
	d.send(conn, chat.EventRoomCreated, code)
}

// JoinRoom attempts entry by code. Failures surface only to the joiner as
// room_joined{success:false}; existing members learn of a successful join.
func (d *Dispatcher) JoinRoom(conn chat.Conn, roomID, username, entry string) {
	d.directory.Bind(conn, username)
	if entry == "" {
		entry = EntryJoin
	}

	// Re-joining the current room is a quiet no-op; the member already got
	// their room_joined and the announcements must not repeat.
	if d.isMember(roomID, conn) {
		zap.L().Debug("session.join_room_noop",
			zap.String("room", roomID), zap.String("conn", conn.ID()))
		return
	}

	// Entering by code supersedes any prior room or queue slot, the way the
	// client returns home before joining somewhere new.
	d.exitCurrentRoom(conn)
	d.queue.Cancel(conn)

	if _, err := d.registry.Join(roomID, username, conn); err != nil {
		zap.L().Debug("session.join_room_refused",
			zap.String("room", roomID), zap.String("conn", conn.ID()), zap.Error(err))
		d.send(conn, chat.EventRoomJoined, chat.RoomJoinedBody{
			RoomID: roomID, Type: entry, Success: false,
		})
		return
	}

	d.deliver(d.audience(roomID, conn), chat.EventUserJoined, username)
	d.send(conn, chat.EventRoomJoined, chat.RoomJoinedBody{
		RoomID: roomID, Type: entry, Success: true,
	})
}

// FindRandomChat queues the caller or pairs them with the earliest waiter.
// On a match both sides get room_joined plus a user_joined naming the other.
func (d *Dispatcher) FindRandomChat(conn chat.Conn, username string) {
	d.directory.Bind(conn, username)
	d.exitCurrentRoom(conn)

	res, err := d.queue.EnqueueOrMatch(username, conn)
	if err != nil {
		zap.L().Error("session.find_random_chat", zap.Error(err))
		return
	}
	if !res.Matched {
		return
	}

	joined := chat.RoomJoinedBody{RoomID: res.Code, Type: EntryRandom, Success: true}
	d.send(res.PartnerConn, chat.EventRoomJoined, joined)
	d.send(conn, chat.EventRoomJoined, joined)
	d.send(res.PartnerConn, chat.EventUserJoined, username)
	d.send(conn, chat.EventUserJoined, res.PartnerName)
}

// CancelRandomSearch drops the caller from the queue; idempotent.
func (d *Dispatcher) CancelRandomSearch(conn chat.Conn) {
	d.queue.Cancel(conn)
}

// LeaveRoom removes the caller from the room and tells whoever remains.
func (d *Dispatcher) LeaveRoom(conn chat.Conn, roomID string) {
	name, _ := d.registry.Leave(roomID, conn)
	if name == "" {
		return
	}
	d.deliver(d.audience(roomID, nil), chat.EventUserLeft, name)
}

// CloseRoom abandons the room outright; every former member, the closer
// included, hears room_closed. Only members may close.
func (d *Dispatcher) CloseRoom(conn chat.Conn, roomID string) {
	if !d.isMember(roomID, conn) {
		d.DropIntent("close_room", errNotInRoom)
		return
	}
	members, ok := d.registry.Close(roomID)
	if !ok {
		return
	}
	for _, p := range members {
		d.send(p.Conn, chat.EventRoomClosed, nil)
	}
}

// SendMessage relays a chat message to every member, the sender included,
// stamped with the server clock.
func (d *Dispatcher) SendMessage(conn chat.Conn, roomID, message, username string) {
	if !d.isMember(roomID, conn) {
		d.DropIntent("send_message", errNotInRoom)
		return
	}
	d.deliver(d.audience(roomID, nil), chat.EventChatMessage, chat.MessageBody{
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Typing notifies the other members; the typist never hears their own echo.
func (d *Dispatcher) Typing(conn chat.Conn, roomID, username string) {
	if !d.isMember(roomID, conn) {
		d.DropIntent("typing", errNotInRoom)
		return
	}
	d.deliver(d.audience(roomID, conn), chat.EventTyping, username)
}

func (d *Dispatcher) StopTyping(conn chat.Conn, roomID string) {
	if !d.isMember(roomID, conn) {
		d.DropIntent("stop_typing", errNotInRoom)
		return
	}
	d.deliver(d.audience(roomID, conn), chat.EventStopTyping, nil)
}

// BroadcastOnlineCount re-announces the current count to everyone.
func (d *Dispatcher) BroadcastOnlineCount() {
	d.presence.BroadcastCount()
}

// DropIntent records an intent that was discarded without a wire reply.
func (d *Dispatcher) DropIntent(event string, err error) {
	d.dropped.Add(1)
	zap.L().Warn("session.intent_dropped", zap.String("event", event), zap.Error(err))
}

// DroppedIntents reports how many intents were discarded so far.
func (d *Dispatcher) DroppedIntents() uint64 {
	return d.dropped.Load()
}

// Stats is a point-in-time snapshot of the live counters.
type Stats struct {
	Online         int    `json:"online"`
	Rooms          int    `json:"rooms"`
	Waiting        int    `json:"waiting"`
	DroppedIntents uint64 `json:"dropped_intents"`
}

func (d *Dispatcher) Snapshot() Stats {
	return Stats{
		Online:         d.presence.Count(),
		Rooms:          d.registry.Count(),
		Waiting:        d.queue.Waiting(),
		DroppedIntents: d.dropped.Load(),
	}
}
