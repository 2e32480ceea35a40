package chat

// Conn is one live transport session. The core never keeps a Conn past its
// disconnect; delivery is fire-and-forget (a failed Send is the transport's
// problem, not the caller's).
type Conn interface {
	ID() string
	Send(event string, body any) error
}

// Outbound event names. Payload shapes are part of the client contract.
const (
	EventOnlineCount = "online_count" // int
	EventChatMessage = "chat_message" // MessageBody
	EventUserJoined  = "user_joined"  // username string
	EventUserLeft    = "user_left"    // username string
	EventRoomCreated = "room_created" // roomId string
	EventRoomJoined  = "room_joined"  // RoomJoinedBody
	EventRoomClosed  = "room_closed"  // empty
	EventTyping      = "typing"       // username string
	EventStopTyping  = "stop_typing"  // empty
)

// MessageBody is the payload of a relayed chat_message. Timestamp is
// server-assigned, unix milliseconds.
type MessageBody struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// RoomJoinedBody reports a join attempt back to the joiner. Type echoes the
// kind of entry the client asked for (friend, join, random).
type RoomJoinedBody struct {
	RoomID  string `json:"roomId"`
	Type    string `json:"type"`
	Success bool   `json:"success"`
}
