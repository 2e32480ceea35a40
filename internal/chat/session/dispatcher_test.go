package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strangerchat/internal/chat"
	"strangerchat/internal/chat/directory"
	"strangerchat/internal/chat/matchqueue"
	"strangerchat/internal/chat/presence"
	"strangerchat/internal/chat/registry"
)

type recordedEvent struct {
	event string
	body  any
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(event string, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event: event, body: body})
	return nil
}

// bodies returns the payloads of every delivered event with the given name.
func (f *fakeConn) bodies(event string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e.body)
		}
	}
	return out
}

func newDispatcher() *Dispatcher {
	reg := registry.New(50)
	return New(reg, matchqueue.New(reg), directory.New(), presence.New())
}

// createdCode pulls the room code out of the creator's room_created event.
func createdCode(t *testing.T, conn *fakeConn) string {
	t.Helper()
	created := conn.bodies(chat.EventRoomCreated)
	require.Len(t, created, 1)
	code, ok := created[0].(string)
	require.True(t, ok)
	return code
}

func TestCreateJoinRoundTrip(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}
	d.Connect(creator)
	d.Connect(joiner)

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)

	d.JoinRoom(joiner, code, "bob", EntryJoin)

	assert.Equal(t,
		[]any{chat.RoomJoinedBody{RoomID: code, Type: EntryJoin, Success: true}},
		joiner.bodies(chat.EventRoomJoined))
	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserJoined))
}

func TestThirdJoinerIsRefused(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	second := &fakeConn{id: "second"}
	third := &fakeConn{id: "third"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(second, code, "bob", EntryJoin)
	d.JoinRoom(third, code, "carol", EntryJoin)

	assert.Equal(t,
		[]any{chat.RoomJoinedBody{RoomID: code, Type: EntryJoin, Success: false}},
		third.bodies(chat.EventRoomJoined))

	// Only bob's join was announced to the room.
	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserJoined))
	assert.Empty(t, second.bodies(chat.EventUserJoined))
}

func TestUnknownCodeIsRefused(t *testing.T) {
	d := newDispatcher()
	joiner := &fakeConn{id: "joiner"}

	d.JoinRoom(joiner, "FRD-222-222", "bob", EntryJoin)

	assert.Equal(t,
		[]any{chat.RoomJoinedBody{RoomID: "FRD-222-222", Type: EntryJoin, Success: false}},
		joiner.bodies(chat.EventRoomJoined))
}

func TestEmptiedRoomIsNoLongerJoinable(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.LeaveRoom(creator, code)

	d.JoinRoom(joiner, code, "bob", EntryJoin)
	assert.Equal(t,
		[]any{chat.RoomJoinedBody{RoomID: code, Type: EntryJoin, Success: false}},
		joiner.bodies(chat.EventRoomJoined))
}

func TestRandomMatchPairsFIFO(t *testing.T) {
	d := newDispatcher()
	x := &fakeConn{id: "x"}
	y := &fakeConn{id: "y"}

	d.FindRandomChat(x, "xavier")
	assert.Empty(t, x.bodies(chat.EventRoomJoined), "lone waiter gets nothing yet")

	d.FindRandomChat(y, "yolanda")

	xJoined := x.bodies(chat.EventRoomJoined)
	yJoined := y.bodies(chat.EventRoomJoined)
	require.Len(t, xJoined, 1)
	require.Len(t, yJoined, 1)

	xBody := xJoined[0].(chat.RoomJoinedBody)
	yBody := yJoined[0].(chat.RoomJoinedBody)
	assert.True(t, xBody.Success)
	assert.Equal(t, EntryRandom, xBody.Type)
	assert.Equal(t, xBody.RoomID, yBody.RoomID, "both land in the same room")

	// Each hears the other's name.
	assert.Equal(t, []any{"yolanda"}, x.bodies(chat.EventUserJoined))
	assert.Equal(t, []any{"xavier"}, y.bodies(chat.EventUserJoined))
}

func TestCancelRandomSearchPreventsMatch(t *testing.T) {
	d := newDispatcher()
	x := &fakeConn{id: "x"}
	y := &fakeConn{id: "y"}

	d.FindRandomChat(x, "xavier")
	d.CancelRandomSearch(x)
	d.CancelRandomSearch(x)

	d.FindRandomChat(y, "yolanda")
	assert.Empty(t, y.bodies(chat.EventRoomJoined), "y waits instead of matching a ghost")
}

func TestMessageEchoesToAllMembers(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	d.SendMessage(joiner, code, "hey", "bob")

	for _, conn := range []*fakeConn{creator, joiner} {
		msgs := conn.bodies(chat.EventChatMessage)
		require.Len(t, msgs, 1)
		body := msgs[0].(chat.MessageBody)
		assert.Equal(t, "bob", body.Username)
		assert.Equal(t, "hey", body.Message)
		assert.Positive(t, body.Timestamp, "server stamps the message")
	}
}

func TestMessageFromNonMemberIsDropped(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	outsider := &fakeConn{id: "outsider"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)

	before := d.DroppedIntents()
	d.SendMessage(outsider, code, "let me in", "mallory")

	assert.Empty(t, creator.bodies(chat.EventChatMessage))
	assert.Equal(t, before+1, d.DroppedIntents())
}

func TestTypingNeverEchoesToSender(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	d.Typing(creator, code, "alice")
	d.StopTyping(creator, code)

	assert.Equal(t, []any{"alice"}, joiner.bodies(chat.EventTyping))
	assert.Len(t, joiner.bodies(chat.EventStopTyping), 1)
	assert.Empty(t, creator.bodies(chat.EventTyping))
	assert.Empty(t, creator.bodies(chat.EventStopTyping))
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	d.LeaveRoom(joiner, code)

	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserLeft))
	assert.Empty(t, joiner.bodies(chat.EventUserLeft))
}

func TestCloseRoomReachesAllFormerMembers(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	d.CloseRoom(creator, code)

	assert.Len(t, creator.bodies(chat.EventRoomClosed), 1)
	assert.Len(t, joiner.bodies(chat.EventRoomClosed), 1)
	assert.Equal(t, 0, d.Snapshot().Rooms)
}

func TestCloseByNonMemberIsDropped(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	outsider := &fakeConn{id: "outsider"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)

	before := d.DroppedIntents()
	d.CloseRoom(outsider, code)

	assert.Empty(t, creator.bodies(chat.EventRoomClosed))
	assert.Equal(t, before+1, d.DroppedIntents())
	assert.Equal(t, 1, d.Snapshot().Rooms)
}

func TestDisconnectCleansUpEverywhere(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}
	d.Connect(creator)
	d.Connect(joiner)

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	d.Disconnect(joiner)

	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserLeft))
	snap := d.Snapshot()
	assert.Equal(t, 1, snap.Online)
	assert.Equal(t, 1, snap.Rooms)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}
	d.Connect(creator)
	d.Connect(joiner)

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	countsBefore := len(creator.bodies(chat.EventOnlineCount))
	d.Disconnect(joiner)
	d.Disconnect(joiner)

	// One user_left, one presence update: the second teardown is a no-op.
	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserLeft))
	assert.Len(t, creator.bodies(chat.EventOnlineCount), countsBefore+1)
}

func TestDisconnectWhileQueuedFreesTheSlot(t *testing.T) {
	d := newDispatcher()
	x := &fakeConn{id: "x"}
	y := &fakeConn{id: "y"}
	d.Connect(x)

	d.FindRandomChat(x, "xavier")
	d.Disconnect(x)

	d.FindRandomChat(y, "yolanda")
	assert.Empty(t, y.bodies(chat.EventRoomJoined))
	assert.Equal(t, 1, d.Snapshot().Waiting)
}

func TestSnapshotTracksLiveCounters(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	waiter := &fakeConn{id: "waiter"}
	d.Connect(creator)
	d.Connect(waiter)

	d.CreateRoom(creator, "alice")
	d.FindRandomChat(waiter, "walter")

	snap := d.Snapshot()
	assert.Equal(t, 2, snap.Online)
	assert.Equal(t, 1, snap.Rooms)
	assert.Equal(t, 1, snap.Waiting)
}

func TestJoinByCodeFreesQueueSlot(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	x := &fakeConn{id: "x"}
	y := &fakeConn{id: "y"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)

	d.FindRandomChat(x, "xavier")
	require.Equal(t, 1, d.Snapshot().Waiting)

	d.JoinRoom(x, code, "xavier", EntryJoin)
	assert.Equal(t, 0, d.Snapshot().Waiting, "entering a room vacates the queue slot")

	// A later arrival waits instead of matching the roomed connection.
	d.FindRandomChat(y, "yolanda")
	assert.Empty(t, y.bodies(chat.EventRoomJoined))
	assert.Len(t, x.bodies(chat.EventRoomJoined), 1, "no second room for x")
	assert.Equal(t, 1, d.Snapshot().Waiting)
}

func TestCreateRoomFreesQueueSlot(t *testing.T) {
	d := newDispatcher()
	x := &fakeConn{id: "x"}
	y := &fakeConn{id: "y"}

	d.FindRandomChat(x, "xavier")
	require.Equal(t, 1, d.Snapshot().Waiting)

	d.CreateRoom(x, "xavier")
	assert.Equal(t, 0, d.Snapshot().Waiting)

	d.FindRandomChat(y, "yolanda")
	assert.Empty(t, y.bodies(chat.EventRoomJoined))
}

func TestJoinWhileInRoomLeavesPriorRoom(t *testing.T) {
	d := newDispatcher()
	first := &fakeConn{id: "first"}
	partner := &fakeConn{id: "partner"}
	second := &fakeConn{id: "second"}

	d.CreateRoom(first, "alice")
	oldCode := createdCode(t, first)
	d.JoinRoom(partner, oldCode, "bob", EntryJoin)

	d.CreateRoom(second, "carol")
	newCode := createdCode(t, second)
	d.JoinRoom(partner, newCode, "bob", EntryJoin)

	// bob left alice's room on the way into carol's.
	assert.Equal(t, []any{"bob"}, first.bodies(chat.EventUserLeft))
	assert.Equal(t, []any{"bob"}, second.bodies(chat.EventUserJoined))

	// bob is a member of exactly the new room.
	d.SendMessage(partner, newCode, "hi", "bob")
	assert.Len(t, second.bodies(chat.EventChatMessage), 1)
	assert.Empty(t, first.bodies(chat.EventChatMessage))
}

func TestCreateWhileInRoomLeavesPriorRoom(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	partner := &fakeConn{id: "partner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(partner, code, "bob", EntryJoin)

	d.CreateRoom(partner, "bob")

	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserLeft))
	assert.Len(t, partner.bodies(chat.EventRoomCreated), 1)
	assert.Equal(t, 2, d.Snapshot().Rooms, "old room still holds alice, new room holds bob")
}

func TestFindRandomChatWhileInRoomLeavesPriorRoom(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	partner := &fakeConn{id: "partner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(partner, code, "bob", EntryJoin)

	d.FindRandomChat(partner, "bob")

	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserLeft))
	assert.Equal(t, 1, d.Snapshot().Waiting)

	// The room the waiter abandoned no longer reaches them.
	d.SendMessage(creator, code, "still there?", "alice")
	assert.Empty(t, partner.bodies(chat.EventChatMessage))
}

func TestRejoinSameRoomStaysQuiet(t *testing.T) {
	d := newDispatcher()
	creator := &fakeConn{id: "creator"}
	joiner := &fakeConn{id: "joiner"}

	d.CreateRoom(creator, "alice")
	code := createdCode(t, creator)
	d.JoinRoom(joiner, code, "bob", EntryJoin)
	d.JoinRoom(joiner, code, "bob", EntryJoin)

	// No duplicate announcements, no self-eviction.
	assert.Equal(t, []any{"bob"}, creator.bodies(chat.EventUserJoined))
	assert.Len(t, joiner.bodies(chat.EventRoomJoined), 1)
	assert.Empty(t, creator.bodies(chat.EventUserLeft))
	assert.Len(t, d.registry.Members(code), 2)
}
