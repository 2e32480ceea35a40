package ws

import "encoding/json"

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "join_room"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// eventFrame is the outbound counterpart; Body may be an object, a string,
// a number, or absent.
type eventFrame struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// ──────────────────────────── Intent payloads ────────────────────────────
//
// Field names are part of the client contract. Usernames must carry at
// least three characters; the original client enforced that bound and the
// server now does too.

type CreateRoomIntent struct {
	Username string `json:"username" validate:"required,min=3"`
}

type JoinRoomIntent struct {
	RoomID   string `json:"roomId"   validate:"required"`
	Username string `json:"username" validate:"required,min=3"`
	Type     string `json:"type"     validate:"omitempty,oneof=friend join random"`
}

type FindRandomChatIntent struct {
	Username string `json:"username" validate:"required,min=3"`
}

// Username is advisory here; cancellation is keyed on the connection.
type CancelRandomSearchIntent struct {
	Username string `json:"username"`
}

type LeaveRoomIntent struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username"`
}

type CloseRoomIntent struct {
	RoomID string `json:"roomId" validate:"required"`
}

type SendMessageIntent struct {
	RoomID   string `json:"roomId"   validate:"required"`
	Message  string `json:"message"  validate:"required"`
	Username string `json:"username" validate:"required,min=3"`
}

type TypingIntent struct {
	RoomID   string `json:"roomId"   validate:"required"`
	Username string `json:"username" validate:"required,min=3"`
}

type StopTypingIntent struct {
	RoomID string `json:"roomId" validate:"required"`
}

type UpdateOnlineCountIntent struct{}
